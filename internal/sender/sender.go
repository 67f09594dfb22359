package sender

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/metrics"
	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

// RawSender 一次阻塞的原始帧交换（transport.Link 实现）。
// 返回响应帧的完整长度，可能大于 len(response)。
type RawSender interface {
	SendRawPacket(ctx context.Context, request, response []byte) (int, error)
}

// Command 一条待发送的命令；Body 为 nil 时按空载荷发送
type Command struct {
	ID       dobot.CommandID
	IsRead   bool
	IsQueued bool
	Body     dobot.Body
}

// Sender 独占一条物理链路，所有交换在同一把锁下串行执行
type Sender struct {
	mu       sync.Mutex
	raw      RawSender
	poisoned atomic.Bool

	logger  *zap.Logger
	metrics *metrics.LinkMetrics
	journal Journal
	retry   *RetryPolicy

	reqBuf  [dobot.MaxPacketSize]byte
	respBuf [dobot.MaxPacketSize]byte
}

// Option Sender 可选项
type Option func(*Sender)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.LinkMetrics) Option {
	return func(s *Sender) { s.metrics = m }
}

// WithJournal 每次交换结束后写入日志（失败只记录，不影响调用结果）
func WithJournal(j Journal) Option {
	return func(s *Sender) { s.journal = j }
}

// New 创建 Sender；连接建立后构造一次，生命周期与链路一致
func New(raw RawSender, opts ...Option) *Sender {
	s := &Sender{raw: raw, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Poisoned 是否曾在交换中发生 panic
func (s *Sender) Poisoned() bool { return s.poisoned.Load() }

// Exec 编码请求、完成一次交换并将响应载荷解码到 resp（resp 为 nil 时忽略载荷）。
// respBuf 为 nil 时使用内部固定缓冲区。
func (s *Sender) Exec(ctx context.Context, cmd Command, resp dobot.Decoder, respBuf []byte) error {
	if cmd.Body == nil {
		cmd.Body = dobot.Empty{}
	}
	start := time.Now()
	attempts, err := s.locked(ctx, cmd, resp, respBuf)
	s.observe(ctx, cmd, resp, attempts, err, time.Since(start))
	return err
}

func (s *Sender) locked(ctx context.Context, cmd Command, resp dobot.Decoder, respBuf []byte) (attempts int, err error) {
	if s.poisoned.Load() {
		return 0, ErrSenderPoisoned
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned.Load() {
		return 0, ErrSenderPoisoned
	}

	completed := false
	defer func() {
		if !completed {
			// panic 继续向上传播；之后的调用一律返回 ErrSenderPoisoned
			s.poisoned.Store(true)
			s.logger.Error("panic during exchange, sender poisoned", zap.Stringer("cmd", cmd.ID))
		}
	}()

	if respBuf == nil {
		respBuf = s.respBuf[:]
	}
	if s.retry == nil || cmd.IsQueued {
		err = s.exchange(ctx, cmd, resp, respBuf)
		attempts = 1
	} else {
		attempts, err = s.exchangeWithRetry(ctx, cmd, resp, respBuf)
	}
	completed = true
	return attempts, err
}

// exchange 单次请求/响应，须持锁调用
func (s *Sender) exchange(ctx context.Context, cmd Command, resp dobot.Decoder, respBuf []byte) error {
	frame := dobot.Frame[dobot.Body]{
		Header: dobot.Header{ID: cmd.ID, IsQueued: cmd.IsQueued, IsRead: cmd.IsRead},
		Body:   cmd.Body,
	}
	n, err := frame.Encode(s.reqBuf[:])
	if err != nil {
		return &Error{Op: "encode", ID: cmd.ID, Err: err}
	}

	got, err := s.raw.SendRawPacket(ctx, s.reqBuf[:n], respBuf)
	if err != nil {
		return &Error{Op: "send", ID: cmd.ID, Err: err}
	}
	if got > len(respBuf) {
		return &Error{Op: "receive", ID: cmd.ID, Err: dobot.ErrBufferTooSmall}
	}

	h, payload, err := dobot.Split(respBuf[:got])
	if err != nil {
		return &Error{Op: "decode", ID: cmd.ID, Err: err}
	}
	if h.ID != cmd.ID {
		// 多为上一次超时交换的迟到应答，不能按本命令解码
		return &Error{Op: "decode", ID: cmd.ID, Err: fmt.Errorf("%w: got %s", ErrResponseMismatch, h.ID)}
	}
	if resp != nil {
		if err := resp.Deserialize(payload); err != nil {
			return &Error{Op: "deserialize", ID: cmd.ID, Err: err}
		}
	}
	return nil
}

func (s *Sender) observe(ctx context.Context, cmd Command, resp dobot.Decoder, attempts int, err error, d time.Duration) {
	kind := errorKind(err)
	s.metrics.ObserveExchange(cmd.ID.Group().String(), kind, d)

	fields := []zap.Field{
		zap.Stringer("cmd", cmd.ID),
		zap.Bool("queued", cmd.IsQueued),
		zap.Bool("read", cmd.IsRead),
		zap.Int("bytes", cmd.Body.Size()),
		zap.Duration("took", d),
	}
	if attempts > 1 {
		fields = append(fields, zap.Int("attempts", attempts))
	}
	if err != nil {
		s.logger.Warn("exchange failed", append(fields, zap.String("kind", kind), zap.Error(err))...)
	} else {
		s.logger.Debug("exchange", fields...)
	}

	if s.journal == nil || attempts == 0 {
		return
	}
	ex := Exchange{
		ID:       cmd.ID,
		IsRead:   cmd.IsRead,
		IsQueued: cmd.IsQueued,
		Attempts: attempts,
		Err:      err,
		Duration: d,
		At:       time.Now().Add(-d),
	}
	if qi, ok := resp.(*dobot.QueueIndex); ok && err == nil {
		v := uint64(*qi)
		ex.QueueIndex = &v
	}
	if jerr := s.journal.Record(context.WithoutCancel(ctx), ex); jerr != nil {
		s.metrics.JournalFailed()
		s.logger.Warn("journal record failed", zap.Stringer("cmd", cmd.ID), zap.Error(jerr))
	}
}

// SendCommand 发送命令并将响应解码为 T
func SendCommand[T any, PT dobot.BodyPtr[T]](ctx context.Context, s *Sender, cmd Command) (T, error) {
	var out T
	if err := s.Exec(ctx, cmd, PT(&out), nil); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// SendQueued 以队列模式发送命令，返回设备分配的队列序号；队列请求不得携带载荷
func (s *Sender) SendQueued(ctx context.Context, id dobot.CommandID, body dobot.Body) (uint64, error) {
	if body != nil && body.Size() != 0 {
		return 0, &Error{Op: "encode", ID: id, Err: dobot.ErrPassedBodyAndQueuedIndex}
	}
	idx, err := SendCommand[dobot.QueueIndex](ctx, s, Command{ID: id, IsQueued: true, Body: body})
	if err != nil {
		return 0, err
	}
	return uint64(idx), nil
}

// CurrentQueueIndex 读取设备当前执行到的队列序号
func (s *Sender) CurrentQueueIndex(ctx context.Context) (uint64, error) {
	idx, err := SendCommand[dobot.QueueIndex](ctx, s, Command{ID: dobot.QueuedCurrentIndex, IsRead: true})
	if err != nil {
		return 0, err
	}
	s.metrics.SetQueueIndex(uint64(idx))
	return uint64(idx), nil
}
