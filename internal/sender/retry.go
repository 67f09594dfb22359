package sender

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

// RetryPolicy 瞬时错误的指数退避重试
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
}

// WithRetry 为非队列命令启用重试；MaxRetries<=0 时不生效
func WithRetry(p RetryPolicy) Option {
	return func(s *Sender) {
		if p.MaxRetries <= 0 {
			s.retry = nil
			return
		}
		s.retry = &p
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	// 次数由 WithMaxRetries 控制
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx)
}

// exchangeWithRetry 须持锁调用；整个重试过程不释放锁，避免其他交换插入
func (s *Sender) exchangeWithRetry(ctx context.Context, cmd Command, resp dobot.Decoder, respBuf []byte) (int, error) {
	attempts := 0
	var final error
	op := func() error {
		attempts++
		final = s.exchange(ctx, cmd, resp, respBuf)
		if final != nil && Retryable(final) {
			return final
		}
		// 成功或不可重试的错误：结束重试，结果保存在 final
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Debug("retrying exchange",
			zap.Stringer("cmd", cmd.ID), zap.Int("attempt", attempts), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, s.retry.backOff(ctx), notify); err != nil && final == nil {
		// 重试等待期间 ctx 结束
		return attempts, err
	}
	return attempts, final
}
