package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
	"github.com/taoyao-code/dobot-link/internal/sender"
	pgstorage "github.com/taoyao-code/dobot-link/internal/storage/pg"
)

// ExchangeLister 查询最近的命令交换日志
type ExchangeLister interface {
	Recent(ctx context.Context, limit int) ([]pgstorage.ExchangeRow, error)
}

// DeviceHandler 机械臂查询/控制API处理器
type DeviceHandler struct {
	sender    *sender.Sender
	catalog   *dobot.AlarmCatalog
	wait      sender.WaitPolicy
	maxWait   time.Duration
	exchanges ExchangeLister
	logger    *zap.Logger
}

// NewDeviceHandler exchanges 可为 nil（未启用交换日志）
func NewDeviceHandler(
	s *sender.Sender,
	catalog *dobot.AlarmCatalog,
	wait sender.WaitPolicy,
	maxWait time.Duration,
	exchanges ExchangeLister,
	logger *zap.Logger,
) *DeviceHandler {
	if catalog == nil {
		catalog = dobot.DefaultAlarmCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxWait < wait.Timeout {
		maxWait = wait.Timeout
	}
	return &DeviceHandler{
		sender:    s,
		catalog:   catalog,
		wait:      wait,
		maxWait:   maxWait,
		exchanges: exchanges,
		logger:    logger,
	}
}

// DeviceInfo 设备信息
type DeviceInfo struct {
	SerialNumber string        `json:"sn"`
	Name         string        `json:"name"`
	Version      string        `json:"version"`
	VersionParts dobot.Version `json:"version_parts"`
}

// GetDevice 读取序列号、设备名与固件版本
// GET /api/v1/device
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	ctx := c.Request.Context()

	sn, err := h.sender.ReadString(ctx, dobot.DeviceSn)
	if err != nil {
		h.fail(c, err)
		return
	}
	name, err := h.sender.ReadString(ctx, dobot.DeviceName)
	if err != nil {
		h.fail(c, err)
		return
	}
	ver, err := sender.SendCommand[dobot.Version](ctx, h.sender, sender.Command{ID: dobot.DeviceVersion, IsRead: true})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, DeviceInfo{
		SerialNumber: sn,
		Name:         name,
		Version:      ver.String(),
		VersionParts: ver,
	})
}

// AlarmView 单个激活报警
type AlarmView struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListAlarms 读取报警位图并返回激活项
// GET /api/v1/alarms
func (h *DeviceHandler) ListAlarms(c *gin.Context) {
	state, err := sender.SendCommand[dobot.AlarmState](c.Request.Context(), h.sender,
		sender.Command{ID: dobot.AlarmReadState, IsRead: true})
	if err != nil {
		h.fail(c, err)
		return
	}

	active := state.Active()
	alarms := make([]AlarmView, 0, len(active))
	for _, a := range active {
		alarms = append(alarms, AlarmView{
			Code:        int(a),
			Name:        a.String(),
			Description: h.catalog.Describe(a),
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(alarms), "alarms": alarms})
}

// ClearAlarms 清除全部报警
// DELETE /api/v1/alarms
func (h *DeviceHandler) ClearAlarms(c *gin.Context) {
	if err := h.sender.Exec(c.Request.Context(), sender.Command{ID: dobot.AlarmClearAll}, nil, nil); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("alarms cleared", zap.String("request_id", c.GetString("request_id")))
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// GetQueueIndex 读取设备当前执行到的队列序号
// GET /api/v1/queue/index
func (h *DeviceHandler) GetQueueIndex(c *gin.Context) {
	idx, err := h.sender.CurrentQueueIndex(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": idx})
}

// WaitRequest 等待队列命令执行完毕
type WaitRequest struct {
	Index     *uint64 `json:"index" binding:"required"`
	TimeoutMs int64   `json:"timeoutMs"`
}

// WaitQueue 阻塞直到设备队列序号达到 index
// POST /api/v1/queue/wait
func (h *DeviceHandler) WaitQueue(c *gin.Context) {
	var req WaitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	policy := h.wait
	if req.TimeoutMs < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "timeoutMs must be >= 0"})
		return
	}
	if req.TimeoutMs > h.maxWait.Milliseconds() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": fmt.Sprintf("timeoutMs must be <= %d", h.maxWait.Milliseconds()),
		})
		return
	}
	if req.TimeoutMs > 0 {
		policy = policyForTimeout(h.wait, time.Duration(req.TimeoutMs)*time.Millisecond)
	}

	start := time.Now()
	if err := h.sender.WaitForQueuedCommand(c.Request.Context(), *req.Index, policy); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"index":    *req.Index,
		"reached":  true,
		"waitedMs": time.Since(start).Milliseconds(),
	})
}

// policyForTimeout 覆盖超时，并保证轮询次数足以覆盖整个超时窗口
func policyForTimeout(base sender.WaitPolicy, timeout time.Duration) sender.WaitPolicy {
	p := base
	p.Timeout = timeout
	if p.Interval > 0 {
		if need := int(timeout/p.Interval) + 1; need > p.MaxAttempts {
			p.MaxAttempts = need
		}
	}
	return p
}

// ListExchanges 最近的命令交换日志
// GET /api/v1/exchanges?limit=50
func (h *DeviceHandler) ListExchanges(c *gin.Context) {
	if h.exchanges == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "journal_disabled"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	rows, err := h.exchanges.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list exchanges failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchanges": rows})
}

func (h *DeviceHandler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	h.logger.Warn("device request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString("request_id")),
		zap.Int("status", code),
		zap.Error(err))
	c.JSON(code, gin.H{"error": errorCode(err), "message": err.Error()})
}

// statusFor 将命令错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, sender.ErrInvalidWaitPolicy):
		return http.StatusBadRequest
	case errors.Is(err, sender.ErrSenderPoisoned),
		errors.Is(err, sender.ErrLinkDown),
		errors.Is(err, sender.ErrSerial):
		return http.StatusServiceUnavailable
	case errors.Is(err, sender.ErrNoResponse),
		errors.Is(err, sender.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusBadGateway
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, sender.ErrInvalidWaitPolicy):
		return "invalid_wait_policy"
	case errors.Is(err, sender.ErrSenderPoisoned):
		return "sender_poisoned"
	case errors.Is(err, sender.ErrLinkDown):
		return "link_down"
	case errors.Is(err, sender.ErrSerial):
		return "serial_error"
	case errors.Is(err, sender.ErrNoResponse):
		return "no_response"
	case errors.Is(err, sender.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, sender.ErrStrConversion):
		return "string_conversion"
	default:
		return "protocol_error"
	}
}
