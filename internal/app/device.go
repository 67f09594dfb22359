package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/dobot-link/internal/config"
	"github.com/taoyao-code/dobot-link/internal/metrics"
	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
	"github.com/taoyao-code/dobot-link/internal/sender"
	"github.com/taoyao-code/dobot-link/internal/transport"
)

// Device 一台已打开串口的机械臂
type Device struct {
	Port   string
	Link   *transport.Link
	Sender *sender.Sender
}

// OpenDevice 打开串口，挂载熔断器并创建 Sender；journal 为 nil 时不记录交换
func OpenDevice(cfg *cfgpkg.Config, m *metrics.LinkMetrics, journal sender.Journal, log *zap.Logger) (*Device, error) {
	port, err := transport.OpenSerial(transport.SerialConfig{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return newDevice(cfg, port, m, journal, log), nil
}

func newDevice(cfg *cfgpkg.Config, port transport.Port, m *metrics.LinkMetrics, journal sender.Journal, log *zap.Logger) *Device {
	breaker := transport.NewBreaker(cfg.Serial.BreakerThreshold, cfg.Serial.BreakerCooldown)
	breaker.OnTransition(func(from, to transport.BreakerState) {
		m.SetBreakerOpen(to == transport.BreakerOpen)
		log.Warn("serial link breaker transition",
			zap.String("port", cfg.Serial.Port),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	})

	link := transport.NewLink(port,
		transport.WithReadTimeout(cfg.Serial.ReadTimeout),
		transport.WithLogger(log.Named("link")),
		transport.WithBreaker(breaker),
	)

	opts := []sender.Option{
		sender.WithLogger(log.Named("sender")),
		sender.WithMetrics(m),
		sender.WithRetry(sender.RetryPolicy{
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxRetries:      cfg.Retry.MaxRetries,
		}),
	}
	if journal != nil {
		opts = append(opts, sender.WithJournal(journal))
	}

	return &Device{
		Port:   cfg.Serial.Port,
		Link:   link,
		Sender: sender.New(link, opts...),
	}
}

// Probe 读取设备名确认设备在线
func (d *Device) Probe(ctx context.Context, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Sender.ReadString(ctx, dobot.DeviceName)
}

// Close 关闭串口
func (d *Device) Close() error {
	if d == nil || d.Link == nil {
		return nil
	}
	return d.Link.Close()
}

// WaitPolicy 由配置得到队列等待策略
func WaitPolicy(cfg cfgpkg.QueueConfig) sender.WaitPolicy {
	return sender.WaitPolicy{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.MaxAttempts,
		Timeout:     cfg.Timeout,
	}
}

// LoadAlarmCatalog 默认报警表，按需合并 YAML 覆盖项
func LoadAlarmCatalog(cfg cfgpkg.AlarmsConfig, log *zap.Logger) *dobot.AlarmCatalog {
	catalog := dobot.DefaultAlarmCatalog()
	if cfg.CatalogPath == "" {
		return catalog
	}
	extra, err := dobot.LoadAlarmCatalog(cfg.CatalogPath)
	if err != nil {
		log.Warn("load alarm catalog failed, using defaults", zap.String("path", cfg.CatalogPath), zap.Error(err))
		return catalog
	}
	catalog.Merge(extra)
	log.Info("alarm catalog loaded", zap.String("path", cfg.CatalogPath), zap.Int("entries", len(extra.Descriptions)))
	return catalog
}
