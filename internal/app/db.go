package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/dobot-link/internal/config"
	"github.com/taoyao-code/dobot-link/internal/migrate"
	pgstorage "github.com/taoyao-code/dobot-link/internal/storage/pg"
)

// ConnectDBAndMigrate 建立数据库连接并执行内嵌迁移；database.enable=false 时返回 nil, nil
func ConnectDBAndMigrate(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	if !cfg.Enable {
		log.Info("database is disabled, exchange journal off")
		return nil, nil
	}
	dbpool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error("db connect error", zap.Error(err))
		return nil, err
	}
	applied, err := (migrate.Runner{FS: pgstorage.Migrations()}).Up(ctx, dbpool)
	if err != nil {
		log.Error("db migrate error", zap.Error(err))
		dbpool.Close()
		return nil, err
	}
	log.Info("db migrations applied", zap.Int64s("versions", applied))
	return dbpool, nil
}
