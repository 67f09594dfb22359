package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/dobot-link/internal/health"
)

// NewHealthAggregator 创建健康检查聚合器：启动标记与链路始终检查，数据库可选
func NewHealthAggregator(ready *health.Readiness, dev *Device, dbpool *pgxpool.Pool) *health.Aggregator {
	agg := health.NewAggregator(
		ready,
		health.NewLinkChecker(dev.Port, dev.Link.Breaker(), dev.Sender),
	)
	if dbpool != nil {
		agg.AddChecker(health.NewDatabaseChecker(dbpool))
	}
	return agg
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}
