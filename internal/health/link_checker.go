package health

import (
	"context"
	"time"

	"github.com/taoyao-code/dobot-link/internal/transport"
)

// BreakerSource 提供链路熔断器统计
type BreakerSource interface {
	Stats() transport.BreakerStats
}

// PoisonSource 报告命令发送器是否已中毒
type PoisonSource interface {
	Poisoned() bool
}

// LinkChecker 串口链路健康检查器
type LinkChecker struct {
	port    string
	breaker BreakerSource
	sender  PoisonSource
}

// NewLinkChecker 创建链路健康检查器
func NewLinkChecker(port string, breaker BreakerSource, sender PoisonSource) *LinkChecker {
	return &LinkChecker{port: port, breaker: breaker, sender: sender}
}

// Name 返回检查器名称
func (c *LinkChecker) Name() string {
	return "link"
}

// Check 熔断打开或发送器中毒均视为不可服务
func (c *LinkChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	stats := c.breaker.Stats()
	poisoned := c.sender != nil && c.sender.Poisoned()

	status := StatusHealthy
	message := "ok"

	switch {
	case poisoned:
		status = StatusUnhealthy
		message = "sender poisoned, restart required"
	case stats.State == transport.BreakerOpen.String():
		status = StatusUnhealthy
		message = "serial link circuit open"
	case stats.State == transport.BreakerHalfOpen.String():
		status = StatusDegraded
		message = "serial link probing"
	case stats.Failures > 0:
		status = StatusDegraded
		message = "recent exchange failures"
	}

	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]interface{}{
			"port":             c.port,
			"breaker_state":    stats.State,
			"breaker_failures": stats.Failures,
			"breaker_trips":    stats.Trips,
			"poisoned":         poisoned,
		},
		Latency: time.Since(start),
	}
}
