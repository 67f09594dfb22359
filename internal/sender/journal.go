package sender

import (
	"context"
	"time"

	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

// Exchange 一次命令交换的记录
type Exchange struct {
	ID         dobot.CommandID
	IsRead     bool
	IsQueued   bool
	QueueIndex *uint64 // 仅队列命令成功时有值
	Attempts   int
	Err        error
	Duration   time.Duration
	At         time.Time
}

// Journal 交换日志落地（storage/pg 实现）
type Journal interface {
	Record(ctx context.Context, ex Exchange) error
}
