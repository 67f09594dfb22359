package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

// 端口空读（0 字节且无错误/EOF）时的让出间隔
const idleWait = 2 * time.Millisecond

// Link 一条物理串口链路上的原始帧收发。
// 非并发安全：同一时刻只能有一个交换在进行，由 sender 的互斥锁保证。
type Link struct {
	port        Port
	readTimeout time.Duration
	logger      *zap.Logger
	breaker     *Breaker
	dec         *dobot.StreamDecoder
	chunk       [dobot.MaxPacketSize]byte
}

// LinkOption Link 可选项
type LinkOption func(*Link)

// WithReadTimeout 单次交换等待响应的上限
func WithReadTimeout(d time.Duration) LinkOption {
	return func(l *Link) {
		if d > 0 {
			l.readTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) LinkOption {
	return func(l *Link) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBreaker 为链路挂载熔断器
func WithBreaker(b *Breaker) LinkOption {
	return func(l *Link) { l.breaker = b }
}

// NewLink 基于已打开的端口创建链路
func NewLink(port Port, opts ...LinkOption) *Link {
	l := &Link{
		port:        port,
		readTimeout: DefaultReadTimeout,
		logger:      zap.NewNop(),
		dec:         dobot.NewStreamDecoder(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Breaker 返回挂载的熔断器（可能为 nil）
func (l *Link) Breaker() *Breaker { return l.breaker }

// SendRawPacket 写出完整请求帧，读回一帧响应并拷贝到 response。
// 返回值为响应帧的完整长度，可能大于 len(response)，由调用方判定缓冲区不足。
func (l *Link) SendRawPacket(ctx context.Context, request, response []byte) (int, error) {
	if l.breaker != nil {
		if err := l.breaker.Allow(); err != nil {
			return 0, err
		}
	}
	n, err := l.exchange(ctx, request, response)
	if l.breaker != nil && !isContextErr(err) {
		l.breaker.Record(err)
	}
	return n, err
}

func (l *Link) exchange(ctx context.Context, request, response []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// 丢弃上一次交换残留的字节
	l.dec.Reset()
	if f, ok := l.port.(flusher); ok {
		if err := f.Flush(); err != nil {
			l.logger.Debug("flush serial input failed", zap.Error(err))
		}
	}

	written, err := l.port.Write(request)
	if err != nil {
		return 0, fmt.Errorf("%w: write: %w", ErrSerial, err)
	}
	if written != len(request) {
		return 0, fmt.Errorf("%w: short write %d/%d", ErrSerial, written, len(request))
	}

	deadline := time.Now().Add(l.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	received := 0
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := l.port.Read(l.chunk[:])
		if n > 0 {
			received += n
			frames := l.dec.Feed(l.chunk[:n])
			if len(frames) > 0 {
				if len(frames) > 1 {
					l.logger.Warn("extra frames discarded", zap.Int("count", len(frames)-1))
				}
				if dropped := l.dec.Dropped(); dropped > 0 {
					l.logger.Debug("noise bytes discarded", zap.Int("bytes", dropped))
				}
				frame := frames[0]
				copy(response, frame)
				return len(frame), nil
			}
			// 完整但校验失败的帧，且其后没有待续的半包：线路损坏，不再等到超时
			if bad := l.dec.Corrupt(); bad != nil && !l.dec.Pending() {
				return 0, corruptFrameError(bad)
			}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: read: %w", ErrSerial, err)
		}
		if n == 0 {
			time.Sleep(idleWait)
		}
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if received == 0 {
		return 0, ErrNoResponse
	}
	if bad := l.dec.Corrupt(); bad != nil {
		return 0, corruptFrameError(bad)
	}
	return 0, fmt.Errorf("%w: %d bytes received without a complete frame", ErrTimeout, received)
}

// Close 关闭底层端口
func (l *Link) Close() error {
	if c, ok := l.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func corruptFrameError(frame []byte) error {
	return fmt.Errorf("%w: corrupted %d byte frame % X", dobot.ErrChecksum, len(frame), frame)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
