package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/dobot-link/internal/metrics"
)

// NewMetrics 初始化注册表与链路指标
func NewMetrics() (*prometheus.Registry, *metrics.LinkMetrics) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewLinkMetrics(reg)
}
