package sender

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WaitPolicy 队列等待的轮询策略，三项均须为正
type WaitPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

func (p WaitPolicy) Validate() error {
	if p.Interval <= 0 || p.MaxAttempts <= 0 || p.Timeout <= 0 {
		return fmt.Errorf("%w: interval=%s maxAttempts=%d timeout=%s",
			ErrInvalidWaitPolicy, p.Interval, p.MaxAttempts, p.Timeout)
	}
	return nil
}

// WaitForQueuedCommand 轮询设备当前队列序号，直到其达到或超过 idx。
// 超过 MaxAttempts 次或 Timeout 仍未达到时返回 ErrTimeout；轮询中的瞬时错误会继续重试。
func (s *Sender) WaitForQueuedCommand(ctx context.Context, idx uint64, p WaitPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	start := time.Now()
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	// 首次立即查询，其后按 Interval 节拍
	limiter := rate.NewLimiter(rate.Every(p.Interval), 1)

	var (
		current uint64
		lastErr error
		polled  int
	)
	for polled < p.MaxAttempts {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		polled++
		cur, err := s.CurrentQueueIndex(ctx)
		if err != nil {
			if perr := parent.Err(); perr != nil {
				return perr
			}
			if ctx.Err() != nil {
				break
			}
			if !Retryable(err) {
				return err
			}
			lastErr = err
			continue
		}
		current = cur
		if cur >= idx {
			s.metrics.ObserveQueueWait(time.Since(start))
			s.logger.Debug("queued command executed",
				zap.Uint64("index", idx), zap.Int("polls", polled), zap.Duration("took", time.Since(start)))
			return nil
		}
	}

	if perr := parent.Err(); perr != nil {
		return perr
	}
	if lastErr != nil {
		return fmt.Errorf("%w: queue index %d not reached after %d polls (current %d, last error: %v)",
			ErrTimeout, idx, polled, current, lastErr)
	}
	return fmt.Errorf("%w: queue index %d not reached after %d polls (current %d)",
		ErrTimeout, idx, polled, current)
}
