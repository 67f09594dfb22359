package app

import (
	"context"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/dobot-link/internal/config"
	"github.com/taoyao-code/dobot-link/internal/health"
	"github.com/taoyao-code/dobot-link/internal/metrics"
	redisstorage "github.com/taoyao-code/dobot-link/internal/storage/redis"
)

// NewRedisClient 创建Redis客户端；未启用时返回 nil, nil
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, serial port lease off")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))

	return client, nil
}

// AcquirePortLease 抢占串口租约并启动后台续约；租约丢失时调用 onLost
func AcquirePortLease(
	ctx context.Context,
	client *redisstorage.Client,
	port, instanceID string,
	cfg cfgpkg.RedisConfig,
	m *metrics.LinkMetrics,
	logger *zap.Logger,
	onLost func(error),
) (*redisstorage.PortLease, error) {
	lease := redisstorage.NewPortLease(client.Client, port, instanceID, cfg.LeaseTTL, logger)
	if err := lease.Acquire(ctx); err != nil {
		return nil, err
	}
	m.SetLeaseHeld(true)
	logger.Info("serial port lease acquired", zap.String("key", lease.Key()), zap.String("owner", instanceID))

	go lease.Keep(ctx, func(err error) {
		m.SetLeaseHeld(false)
		if onLost != nil {
			onLost(err)
		}
	})
	return lease, nil
}

// AddLeaseChecker 添加租约检查器到聚合器
func AddLeaseChecker(aggregator *health.Aggregator, lease *redisstorage.PortLease) {
	if lease != nil {
		aggregator.AddChecker(health.NewLeaseChecker(lease))
	}
}
