package sender

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/dobot-link/internal/metrics"
	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
	"github.com/taoyao-code/dobot-link/internal/transport"
)

// replyPort 每次写入后按顺序准备下一条应答，读尽返回 (0, io.EOF)
type replyPort struct {
	mu      sync.Mutex
	replies [][]byte
	pending []byte
	writes  int
}

func (p *replyPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	p.pending = nil
	if len(p.replies) > 0 {
		p.pending = p.replies[0]
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *replyPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return 0, io.EOF
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func corrupted(frame []byte) []byte {
	bad := append([]byte(nil), frame...)
	bad[len(bad)-1] ^= 0xFF
	return bad
}

func TestSender_ChecksumErrorOverLink(t *testing.T) {
	good := packet(dobot.DeviceName, 0x02, []byte("magician"))
	port := &replyPort{replies: [][]byte{corrupted(good)}}
	m := metrics.NewLinkMetrics(prometheus.NewRegistry())
	s := New(transport.NewLink(port, transport.WithReadTimeout(2*time.Second)), WithMetrics(m))

	start := time.Now()
	_, err := s.ReadString(context.Background(), dobot.DeviceName)
	require.ErrorIs(t, err, dobot.ErrChecksum)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)

	var serr *Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, dobot.DeviceName, serr.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FrameErrorTotal.WithLabelValues("checksum")))
}

func TestSender_ChecksumRetriedOverLink(t *testing.T) {
	good := packet(dobot.DeviceName, 0x02, []byte("magician"))
	port := &replyPort{replies: [][]byte{corrupted(good), good}}
	s := New(transport.NewLink(port, transport.WithReadTimeout(time.Second)), WithRetry(fastRetry))

	name, err := s.ReadString(context.Background(), dobot.DeviceName)
	require.NoError(t, err)
	assert.Equal(t, "magician", name)
	assert.Equal(t, 2, port.writes)
}

func TestSender_ResponseIDMismatch(t *testing.T) {
	stale := packet(dobot.DeviceSn, 0x02, []byte("SN-01"))
	fresh := packet(dobot.DeviceName, 0x02, []byte("arm-01"))

	t.Run("不解码为当前命令", func(t *testing.T) {
		raw := &fakeRaw{handler: func([]byte) ([]byte, error) { return stale, nil }}
		_, err := New(raw).ReadString(context.Background(), dobot.DeviceName)
		require.ErrorIs(t, err, ErrResponseMismatch)

		var serr *Error
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "decode", serr.Op)
		assert.Equal(t, dobot.DeviceName, serr.ID)
		assert.True(t, Retryable(err))
	})

	t.Run("迟到应答后重试成功", func(t *testing.T) {
		port := &replyPort{replies: [][]byte{stale, fresh}}
		s := New(transport.NewLink(port, transport.WithReadTimeout(time.Second)), WithRetry(fastRetry))
		name, err := s.ReadString(context.Background(), dobot.DeviceName)
		require.NoError(t, err)
		assert.Equal(t, "arm-01", name)
		assert.Equal(t, 2, port.writes)
	})
}
