package sender

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/dobot-link/internal/metrics"
	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

// fakeRaw 记录请求并由 handler 生成响应
type fakeRaw struct {
	mu          sync.Mutex
	requests    [][]byte
	handler     func(req []byte) ([]byte, error)
	inFlight    int32
	maxInFlight int32
}

func (f *fakeRaw) SendRawPacket(ctx context.Context, req, resp []byte) (int, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxInFlight)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, cur) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, append([]byte(nil), req...))
	h := f.handler
	f.mu.Unlock()

	out, err := h(req)
	if err != nil {
		return 0, err
	}
	copy(resp, out)
	return len(out), nil
}

func (f *fakeRaw) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// packet 手工拼装响应帧（队列响应需要非零的 8 字节序号）
func packet(id dobot.CommandID, ctrl byte, payload []byte) []byte {
	b := []byte{0xAA, 0xAA, byte(2 + len(payload)), byte(id), ctrl}
	b = append(b, payload...)
	return append(b, dobot.CalculateChecksum(b[2:]))
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

type memJournal struct {
	mu      sync.Mutex
	records []Exchange
	err     error
}

func (j *memJournal) Record(_ context.Context, ex Exchange) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, ex)
	return j.err
}

func TestSendQueued_ReturnsDeviceIndex(t *testing.T) {
	raw := &fakeRaw{handler: func(req []byte) ([]byte, error) {
		return packet(dobot.PtpCmd, 0x01, le64(123)), nil
	}}
	s := New(raw)

	idx, err := s.SendQueued(context.Background(), dobot.PtpCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(123), idx)

	require.Equal(t, 1, raw.count())
	req := raw.requests[0]
	assert.Equal(t, []byte{0xAA, 0xAA, 0x0A, byte(dobot.PtpCmd), 0x01}, req[:5])
	assert.Equal(t, make([]byte, 8), req[5:13], "请求中的队列槽位全零")
}

func TestSendQueued_RejectsBody(t *testing.T) {
	raw := &fakeRaw{handler: func([]byte) ([]byte, error) { return nil, errors.New("unreachable") }}
	s := New(raw)

	_, err := s.SendQueued(context.Background(), dobot.PtpCmd, dobot.Float4{1, 2, 3, 4})
	assert.ErrorIs(t, err, dobot.ErrPassedBodyAndQueuedIndex)
	assert.Zero(t, raw.count())
}

func TestSendCommand_Typed(t *testing.T) {
	want := dobot.Float4{100, 200, 300, 400}
	raw := &fakeRaw{handler: func(req []byte) ([]byte, error) {
		b, err := dobot.Frame[dobot.Float4]{Header: dobot.Header{ID: dobot.PtpCommonParams, IsRead: true}, Body: want}.MarshalBinary()
		return b, err
	}}
	s := New(raw)

	got, err := SendCommand[dobot.Float4](context.Background(), s, Command{ID: dobot.PtpCommonParams, IsRead: true})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, byte(0x02), raw.requests[0][4])
}

func TestExec_Errors(t *testing.T) {
	good := packet(dobot.DeviceName, 0, []byte("dobot-magician"))
	corrupt := append([]byte(nil), good...)
	corrupt[6] ^= 0x40

	tests := []struct {
		name    string
		resp    []byte
		rawErr  error
		respBuf []byte
		op      string
		wantErr error
	}{
		{"响应超出调用方缓冲区", good, nil, make([]byte, 8), "receive", dobot.ErrBufferTooSmall},
		{"校验失败", corrupt, nil, nil, "decode", dobot.ErrChecksum},
		{"长度声明超出", good[:len(good)-2], nil, nil, "decode", dobot.ErrLengthMismatch},
		{"无响应", nil, ErrNoResponse, nil, "send", ErrNoResponse},
		{"半包超时", nil, ErrTimeout, nil, "send", ErrTimeout},
		{"载荷过短", packet(dobot.PtpCommonParams, 0, []byte{1, 2}), nil, nil, "deserialize", dobot.ErrBufferTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &fakeRaw{handler: func([]byte) ([]byte, error) { return tt.resp, tt.rawErr }}
			s := New(raw)

			var body dobot.Float4
			err := s.Exec(context.Background(), Command{ID: dobot.PtpCommonParams, IsRead: true}, &body, tt.respBuf)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var serr *Error
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.op, serr.Op)
			assert.Equal(t, dobot.PtpCommonParams, serr.ID)
		})
	}
}

func TestReadString(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
		wantErr error
	}{
		{"普通字符串", []byte("Dobot Magician"), "Dobot Magician", nil},
		{"去掉 NUL 填充", []byte("SN-01\x00\x00\x00"), "SN-01", nil},
		{"中文", []byte("机械臂"), "机械臂", nil},
		{"非法 UTF-8", []byte{0xFF, 0xFE, 0x41}, "", ErrStrConversion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &fakeRaw{handler: func([]byte) ([]byte, error) {
				return packet(dobot.DeviceName, 0x02, tt.payload), nil
			}}
			got, err := New(raw).ReadString(context.Background(), dobot.DeviceName)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteString(t *testing.T) {
	raw := &fakeRaw{handler: func([]byte) ([]byte, error) { return packet(dobot.DeviceName, 0, nil), nil }}
	require.NoError(t, New(raw).WriteString(context.Background(), dobot.DeviceName, "arm-01"))
	assert.Equal(t, []byte("arm-01"), raw.requests[0][5:11])

	err := New(raw).WriteString(context.Background(), dobot.DeviceName, string([]byte{0xFF}))
	assert.ErrorIs(t, err, ErrStrConversion)
}

func TestSender_PoisonedAfterPanic(t *testing.T) {
	raw := &fakeRaw{handler: func([]byte) ([]byte, error) { panic("driver bug") }}
	s := New(raw)

	assert.Panics(t, func() {
		_ = s.Exec(context.Background(), Command{ID: dobot.DeviceSn, IsRead: true}, nil, nil)
	})
	assert.True(t, s.Poisoned())

	raw.handler = func([]byte) ([]byte, error) { return packet(dobot.DeviceSn, 0, nil), nil }
	_, err := s.CurrentQueueIndex(context.Background())
	assert.ErrorIs(t, err, ErrSenderPoisoned)
	assert.Equal(t, 1, raw.count(), "中毒后不再访问链路")
}

func TestSender_ExchangesAreSerialized(t *testing.T) {
	raw := &fakeRaw{handler: func([]byte) ([]byte, error) {
		time.Sleep(2 * time.Millisecond)
		return packet(dobot.QueuedCurrentIndex, 0x02, le64(1)), nil
	}}
	s := New(raw)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CurrentQueueIndex(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, raw.count())
	assert.Equal(t, int32(1), atomic.LoadInt32(&raw.maxInFlight))
}

func TestSender_JournalAndMetrics(t *testing.T) {
	raw := &fakeRaw{handler: func(req []byte) ([]byte, error) {
		return packet(dobot.CommandID(req[3]), req[4], le64(42)), nil
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewLinkMetrics(reg)
	j := &memJournal{err: errors.New("db down")}
	s := New(raw, WithMetrics(m), WithJournal(j))

	idx, err := s.SendQueued(context.Background(), dobot.HomeCmd, nil)
	require.NoError(t, err, "日志写入失败不影响命令结果")
	assert.Equal(t, uint64(42), idx)

	cur, err := s.CurrentQueueIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cur)

	require.Len(t, j.records, 2)
	first := j.records[0]
	assert.Equal(t, dobot.HomeCmd, first.ID)
	assert.True(t, first.IsQueued)
	require.NotNil(t, first.QueueIndex)
	assert.Equal(t, uint64(42), *first.QueueIndex)
	assert.Equal(t, 1, first.Attempts)
	assert.NoError(t, first.Err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExchangeTotal.WithLabelValues("Home", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExchangeTotal.WithLabelValues("QueuedCmd", "ok")))
	assert.Equal(t, float64(42), testutil.ToFloat64(m.QueueIndex))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.JournalFailures))
}

func TestSender_FrameErrorMetric(t *testing.T) {
	raw := &fakeRaw{handler: func([]byte) ([]byte, error) { return nil, ErrNoResponse }}
	reg := prometheus.NewRegistry()
	m := metrics.NewLinkMetrics(reg)
	s := New(raw, WithMetrics(m))

	_, err := s.CurrentQueueIndex(context.Background())
	require.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FrameErrorTotal.WithLabelValues("no_response")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExchangeTotal.WithLabelValues("QueuedCmd", "error")))
}
