package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// LinkMetrics 串口链路与命令交换指标；nil 接收者上的方法均为空操作
type LinkMetrics struct {
	ExchangeTotal    *prometheus.CounterVec   // labels: group, result=ok|error
	ExchangeDuration *prometheus.HistogramVec // labels: group
	FrameErrorTotal  *prometheus.CounterVec   // labels: kind
	QueueWait        prometheus.Histogram
	QueueIndex       prometheus.Gauge   // 最近一次读到的设备队列指针
	BreakerOpen      prometheus.Gauge   // 1=熔断中
	LeaseHeld        prometheus.Gauge   // 1=本实例持有串口租约
	JournalFailures  prometheus.Counter // 交换日志写入失败
}

// NewLinkMetrics 注册并返回链路指标
func NewLinkMetrics(reg prometheus.Registerer) *LinkMetrics {
	m := &LinkMetrics{
		ExchangeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dobot_exchange_total",
			Help: "Request/response exchanges by command group and result.",
		}, []string{"group", "result"}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dobot_exchange_duration_seconds",
			Help:    "Exchange latency by command group.",
			Buckets: []float64{.002, .005, .01, .02, .05, .1, .25, .5, 1, 2},
		}, []string{"group"}),
		FrameErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dobot_frame_error_total",
			Help: "Failed exchanges by error kind.",
		}, []string{"kind"}),
		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dobot_queue_wait_seconds",
			Help:    "Time spent waiting for queued commands to execute.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		QueueIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dobot_queue_index",
			Help: "Last observed device queue index.",
		}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dobot_link_breaker_open",
			Help: "Whether the serial link breaker is open.",
		}),
		LeaseHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dobot_port_lease_held",
			Help: "Whether this instance holds the serial port lease.",
		}),
		JournalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dobot_journal_failures_total",
			Help: "Exchange journal write failures.",
		}),
	}
	reg.MustRegister(m.ExchangeTotal, m.ExchangeDuration, m.FrameErrorTotal, m.QueueWait,
		m.QueueIndex, m.BreakerOpen, m.LeaseHeld, m.JournalFailures)
	return m
}

// ObserveExchange 记录一次交换；kind 为空表示成功
func (m *LinkMetrics) ObserveExchange(group string, kind string, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if kind != "" {
		result = "error"
		m.FrameErrorTotal.WithLabelValues(kind).Inc()
	}
	m.ExchangeTotal.WithLabelValues(group, result).Inc()
	m.ExchangeDuration.WithLabelValues(group).Observe(d.Seconds())
}

func (m *LinkMetrics) ObserveQueueWait(d time.Duration) {
	if m == nil {
		return
	}
	m.QueueWait.Observe(d.Seconds())
}

func (m *LinkMetrics) SetQueueIndex(idx uint64) {
	if m == nil {
		return
	}
	m.QueueIndex.Set(float64(idx))
}

func (m *LinkMetrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	m.BreakerOpen.Set(boolGauge(open))
}

func (m *LinkMetrics) SetLeaseHeld(held bool) {
	if m == nil {
		return
	}
	m.LeaseHeld.Set(boolGauge(held))
}

func (m *LinkMetrics) JournalFailed() {
	if m == nil {
		return
	}
	m.JournalFailures.Inc()
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
