package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker(t *testing.T) {
	t.Run("状态转换", func(t *testing.T) {
		now := time.Unix(1000, 0)
		b := NewBreaker(3, time.Second)
		b.now = func() time.Time { return now }

		var transitions []string
		b.OnTransition(func(from, to BreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		})

		failure := errors.New("silence")
		for i := 0; i < 3; i++ {
			require.NoError(t, b.Allow())
			b.Record(failure)
		}
		assert.Equal(t, BreakerOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrLinkDown)

		now = now.Add(2 * time.Second)
		require.NoError(t, b.Allow())
		assert.Equal(t, BreakerHalfOpen, b.State())

		b.Record(nil)
		assert.Equal(t, BreakerClosed, b.State())
		assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
		assert.Equal(t, int64(1), b.Stats().Trips)
	})

	t.Run("半开试探失败立即熔断", func(t *testing.T) {
		now := time.Unix(1000, 0)
		b := NewBreaker(1, time.Second)
		b.now = func() time.Time { return now }

		b.Record(errors.New("x"))
		assert.Equal(t, BreakerOpen, b.State())

		now = now.Add(2 * time.Second)
		require.NoError(t, b.Allow())
		b.Record(errors.New("x"))
		assert.Equal(t, BreakerOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrLinkDown)
		assert.Equal(t, int64(2), b.Stats().Trips)
	})

	t.Run("成功清零连续失败计数", func(t *testing.T) {
		b := NewBreaker(2, time.Second)
		b.Record(errors.New("x"))
		b.Record(nil)
		b.Record(errors.New("x"))
		assert.Equal(t, BreakerClosed, b.State())
	})

	t.Run("手动重置", func(t *testing.T) {
		b := NewBreaker(1, time.Hour)
		b.Record(errors.New("x"))
		b.Reset()
		assert.Equal(t, BreakerClosed, b.State())
		assert.NoError(t, b.Allow())
	})
}
