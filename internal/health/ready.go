package health

import (
	"context"
	"sync/atomic"
)

// Readiness 启动阶段就绪标记：串口已打开、设备已应答
type Readiness struct {
	linkReady   atomic.Bool
	deviceReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetLinkReady(v bool)   { r.linkReady.Store(v) }
func (r *Readiness) SetDeviceReady(v bool) { r.deviceReady.Store(v) }

// Ready 各阶段均为 true
func (r *Readiness) Ready() bool {
	return r.linkReady.Load() && r.deviceReady.Load()
}

func (r *Readiness) Name() string { return "startup" }

// Check 把启动标记作为检查项并入聚合器
func (r *Readiness) Check(context.Context) CheckResult {
	details := map[string]interface{}{
		"link":   r.linkReady.Load(),
		"device": r.deviceReady.Load(),
	}
	if !r.Ready() {
		return CheckResult{Status: StatusUnhealthy, Message: "starting", Details: details}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
}
