package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrLeaseHeld 租约已被其他实例持有
	ErrLeaseHeld = errors.New("port lease held by another instance")
	// ErrLeaseLost 续约时发现租约已过期或易主
	ErrLeaseLost = errors.New("port lease lost")
)

// 仅持有者可续约/释放
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)
)

// PortLease 串口独占租约：同一物理串口同一时刻只允许一个进程打开
type PortLease struct {
	rdb    redis.UniversalClient
	key    string
	owner  string
	ttl    time.Duration
	logger *zap.Logger
}

// LeaseKey 串口路径对应的租约 key
func LeaseKey(port string) string {
	return "dobot:lease:" + strings.TrimPrefix(port, "/dev/")
}

// NewPortLease owner 一般为实例 ID
func NewPortLease(rdb redis.UniversalClient, port, owner string, ttl time.Duration, logger *zap.Logger) *PortLease {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortLease{rdb: rdb, key: LeaseKey(port), owner: owner, ttl: ttl, logger: logger}
}

func (l *PortLease) Key() string   { return l.key }
func (l *PortLease) Owner() string { return l.owner }

// Acquire 抢占租约；已被他人持有时返回 ErrLeaseHeld（附带持有者）
func (l *PortLease) Acquire(ctx context.Context) error {
	ok, err := l.rdb.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if ok {
		return nil
	}
	holder, err := l.Holder(ctx)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if holder == l.owner {
		// 本实例重启前遗留的租约
		return l.Renew(ctx)
	}
	return fmt.Errorf("%w: %s", ErrLeaseHeld, holder)
}

// Renew 续约
func (l *PortLease) Renew(ctx context.Context) error {
	n, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Release 释放租约；非持有者调用无副作用
func (l *PortLease) Release(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.owner).Int(); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// Holder 当前持有者，无人持有时返回空串
func (l *PortLease) Holder(ctx context.Context) (string, error) {
	v, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Keep 按 ttl/3 周期续约直到 ctx 结束；租约丢失时调用 onLost 并返回
func (l *PortLease) Keep(ctx context.Context, onLost func(error)) {
	interval := l.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := l.Renew(ctx)
			if err == nil {
				continue
			}
			if errors.Is(err, ErrLeaseLost) {
				l.logger.Error("serial port lease lost", zap.String("key", l.key))
				if onLost != nil {
					onLost(err)
				}
				return
			}
			// 网络抖动：下个周期再试，ttl 内仍然有效
			l.logger.Warn("renew lease failed", zap.String("key", l.key), zap.Error(err))
		}
	}
}
