package health

import (
	"context"
	"fmt"
	"time"
)

// LeaseSource 串口租约
type LeaseSource interface {
	Key() string
	Owner() string
	Holder(ctx context.Context) (string, error)
}

// LeaseChecker 串口租约检查器：租约易主说明另一实例可能正在驱动同一机械臂
type LeaseChecker struct {
	lease LeaseSource
}

// NewLeaseChecker 创建租约检查器
func NewLeaseChecker(lease LeaseSource) *LeaseChecker {
	return &LeaseChecker{lease: lease}
}

// Name 返回检查器名称
func (c *LeaseChecker) Name() string {
	return "lease"
}

// Check Redis 不可达时降级（租约在 TTL 内仍有效），易主则不健康
func (c *LeaseChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	holder, err := c.lease.Holder(ctx)
	details := map[string]interface{}{
		"key":   c.lease.Key(),
		"owner": c.lease.Owner(),
	}
	if err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("redis unreachable: %v", err),
			Details: details,
			Latency: time.Since(start),
		}
	}
	details["holder"] = holder

	switch holder {
	case c.lease.Owner():
		return CheckResult{Status: StatusHealthy, Message: "ok", Details: details, Latency: time.Since(start)}
	case "":
		return CheckResult{Status: StatusUnhealthy, Message: "lease expired", Details: details, Latency: time.Since(start)}
	default:
		return CheckResult{Status: StatusUnhealthy, Message: "lease held by another instance", Details: details, Latency: time.Since(start)}
	}
}
