package sender

import (
	"context"
	"errors"
	"fmt"

	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
	"github.com/taoyao-code/dobot-link/internal/transport"
)

var (
	ErrStrConversion     = errors.New("sender: response is not valid utf-8")
	ErrSenderPoisoned    = errors.New("sender: poisoned by a panic during an earlier exchange")
	ErrInvalidWaitPolicy = errors.New("sender: invalid wait policy")
	ErrResponseMismatch  = errors.New("sender: response command id does not match request")

	// 传输层错误
	ErrNoResponse = transport.ErrNoResponse
	ErrTimeout    = transport.ErrTimeout
	ErrSerial     = transport.ErrSerial
	ErrLinkDown   = transport.ErrLinkDown
)

// Error 一次命令交换失败的上下文；Err 为编解码或传输层错误
type Error struct {
	Op  string // encode | send | receive | decode | deserialize | string
	ID  dobot.CommandID
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable 瞬时错误：重发同一请求可能成功
func Retryable(err error) bool {
	switch {
	case errors.Is(err, dobot.ErrChecksum),
		errors.Is(err, dobot.ErrMissingStartBytes),
		errors.Is(err, dobot.ErrLengthMismatch),
		errors.Is(err, ErrResponseMismatch),
		errors.Is(err, ErrNoResponse),
		errors.Is(err, ErrTimeout):
		return true
	}
	return false
}

// errorKind 指标标签
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, dobot.ErrChecksum):
		return "checksum"
	case errors.Is(err, dobot.ErrMissingStartBytes):
		return "start_bytes"
	case errors.Is(err, dobot.ErrLengthMismatch):
		return "length"
	case errors.Is(err, ErrResponseMismatch):
		return "mismatch"
	case errors.Is(err, dobot.ErrBufferTooSmall):
		return "buffer"
	case errors.Is(err, dobot.ErrInvalidCommandID):
		return "command_id"
	case errors.Is(err, dobot.ErrPassedBodyAndQueuedIndex):
		return "queued_body"
	case errors.Is(err, dobot.ErrInvalidEnumValue),
		errors.Is(err, dobot.ErrInvalidTagVersion),
		errors.Is(err, dobot.ErrInvalidAlarmCode),
		errors.Is(err, dobot.ErrInvalidHHTTrigMode):
		return "body"
	case errors.Is(err, ErrStrConversion):
		return "string"
	case errors.Is(err, ErrNoResponse):
		return "no_response"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrLinkDown):
		return "link_down"
	case errors.Is(err, ErrSerial):
		return "serial"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
