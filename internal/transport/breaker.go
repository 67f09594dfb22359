package transport

import (
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常收发
	BreakerOpen                         // 熔断中，直接返回 ErrLinkDown
	BreakerHalfOpen                     // 冷却结束，放行一次试探交换
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker 串口链路熔断器：连续 threshold 次交换失败后熔断 cooldown 时长。
// 同一链路上的交换已由上层串行化，半开状态只需放行一次试探。
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	openedAt     time.Time
	trips        int64
	threshold    int
	cooldown     time.Duration
	now          func() time.Time
	onTransition func(from, to BreakerState)
}

// NewBreaker threshold<=0 时默认 5，cooldown<=0 时默认 5s
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// OnTransition 设置状态变化回调（在锁外同步调用）
func (b *Breaker) OnTransition(fn func(from, to BreakerState)) {
	b.mu.Lock()
	b.onTransition = fn
	b.mu.Unlock()
}

// Allow 交换前检查；熔断期内返回 ErrLinkDown
func (b *Breaker) Allow() error {
	b.mu.Lock()
	if b.state != BreakerOpen {
		b.mu.Unlock()
		return nil
	}
	if b.now().Sub(b.openedAt) < b.cooldown {
		b.mu.Unlock()
		return ErrLinkDown
	}
	fire := b.transition(BreakerHalfOpen)
	b.mu.Unlock()
	fire()
	return nil
}

// Record 记录一次交换结果
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	var fire func()
	if err == nil {
		b.failures = 0
		fire = b.transition(BreakerClosed)
	} else {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			b.openedAt = b.now()
			if b.state != BreakerOpen {
				b.trips++
			}
			fire = b.transition(BreakerOpen)
		}
	}
	b.mu.Unlock()
	if fire != nil {
		fire()
	}
}

// transition 须持锁调用，返回在锁外执行的回调
func (b *Breaker) transition(to BreakerState) func() {
	from := b.state
	if from == to {
		return func() {}
	}
	b.state = to
	cb := b.onTransition
	return func() {
		if cb != nil {
			cb(from, to)
		}
	}
}

// State 当前状态
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// BreakerStats 熔断器统计
type BreakerStats struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
	Trips    int64  `json:"trips"`
}

func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{State: b.state.String(), Failures: b.failures, Trips: b.trips}
}

// Reset 手动恢复
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.failures = 0
	fire := b.transition(BreakerClosed)
	b.mu.Unlock()
	fire()
}
