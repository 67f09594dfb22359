package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/api/middleware"
)

// RegisterDeviceRoutes 注册机械臂API路由
func RegisterDeviceRoutes(r gin.IRouter, handler *DeviceHandler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || handler == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RequestID())
	if authCfg.Enabled {
		api.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled - only for development!")
	}

	api.GET("/device", handler.GetDevice)
	api.GET("/alarms", handler.ListAlarms)
	api.DELETE("/alarms", handler.ClearAlarms)
	api.GET("/queue/index", handler.GetQueueIndex)
	api.POST("/queue/wait", handler.WaitQueue)
	api.GET("/exchanges", handler.ListExchanges)

	logger.Info("device routes registered", zap.Int("endpoints", 6))
}
