package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成实例ID（串口租约持有者、交换日志归属）
// 优先使用环境变量 DOBOT_INSTANCE_ID，否则生成 dobot-link-{hostname}-{uuid前8位}
func GenerateInstanceID() string {
	if id := os.Getenv("DOBOT_INSTANCE_ID"); id != "" {
		return id
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	shortUUID := uuid.New().String()[:8]
	return fmt.Sprintf("dobot-link-%s-%s", hostname, shortUUID)
}
