package redis

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/dobot-link/internal/config"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis不可用，跳过测试")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testPort(t *testing.T) string {
	return "/dev/ttyTEST-" + uuid.NewString()[:8]
}

func TestLeaseKey(t *testing.T) {
	assert.Equal(t, "dobot:lease:ttyUSB0", LeaseKey("/dev/ttyUSB0"))
	assert.Equal(t, "dobot:lease:COM3", LeaseKey("COM3"))
}

func TestNewClient_Disabled(t *testing.T) {
	c, err := NewClient(cfgpkg.RedisConfig{Enabled: false})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPortLease_Exclusive(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	port := testPort(t)

	a := NewPortLease(rdb, port, "instance-a", 5*time.Second, nil)
	b := NewPortLease(rdb, port, "instance-b", 5*time.Second, nil)
	t.Cleanup(func() { rdb.Del(context.Background(), a.Key()) })

	require.NoError(t, a.Acquire(ctx))

	err := b.Acquire(ctx)
	assert.ErrorIs(t, err, ErrLeaseHeld)
	assert.Contains(t, err.Error(), "instance-a")

	t.Run("非持有者无法续约", func(t *testing.T) {
		assert.ErrorIs(t, b.Renew(ctx), ErrLeaseLost)
	})

	t.Run("非持有者释放无副作用", func(t *testing.T) {
		require.NoError(t, b.Release(ctx))
		holder, err := a.Holder(ctx)
		require.NoError(t, err)
		assert.Equal(t, "instance-a", holder)
	})

	t.Run("同一实例重复获取", func(t *testing.T) {
		assert.NoError(t, a.Acquire(ctx))
	})

	t.Run("释放后他人可获取", func(t *testing.T) {
		require.NoError(t, a.Release(ctx))
		require.NoError(t, b.Acquire(ctx))
		holder, err := b.Holder(ctx)
		require.NoError(t, err)
		assert.Equal(t, "instance-b", holder)
	})
}

func TestPortLease_RenewExtendsTTL(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	l := NewPortLease(rdb, testPort(t), "owner", 2*time.Second, nil)
	t.Cleanup(func() { rdb.Del(context.Background(), l.Key()) })
	require.NoError(t, l.Acquire(ctx))

	require.NoError(t, rdb.PExpire(ctx, l.Key(), 100*time.Millisecond).Err())
	require.NoError(t, l.Renew(ctx))

	ttl, err := rdb.PTTL(ctx, l.Key()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Second)
}

func TestPortLease_KeepReportsLoss(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	l := NewPortLease(rdb, testPort(t), "owner", 300*time.Millisecond, nil)
	require.NoError(t, l.Acquire(ctx))

	// 模拟被其他实例抢占
	require.NoError(t, rdb.Set(ctx, l.Key(), "intruder", time.Second).Err())
	t.Cleanup(func() { rdb.Del(context.Background(), l.Key()) })

	var lost atomic.Bool
	done := make(chan struct{})
	go func() {
		l.Keep(ctx, func(error) { lost.Store(true) })
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Keep 未在租约丢失后返回")
	}
	assert.True(t, lost.Load())
}

func TestPortLease_KeepStopsOnCancel(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	l := NewPortLease(rdb, testPort(t), "owner", 300*time.Millisecond, nil)
	t.Cleanup(func() { rdb.Del(context.Background(), l.Key()) })
	require.NoError(t, l.Acquire(ctx))

	done := make(chan struct{})
	go func() {
		l.Keep(ctx, func(error) { t.Error("不应报告租约丢失") })
		close(done)
	}()

	time.Sleep(250 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Keep 未随 ctx 退出")
	}

	holder, err := l.Holder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner", holder, "续约保持了持有权")
}
