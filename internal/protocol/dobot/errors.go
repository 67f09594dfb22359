package dobot

import (
	"errors"
	"fmt"
)

// 编解码层错误（ProtocolError）
var (
	ErrBufferTooSmall           = errors.New("dobot: buffer too small")
	ErrPassedBodyAndQueuedIndex = errors.New("dobot: queued frame must not carry a request body")
	ErrMissingStartBytes        = errors.New("dobot: missing start bytes")
	ErrLengthMismatch           = errors.New("dobot: length mismatch")
	ErrChecksum                 = errors.New("dobot: checksum mismatch")
	ErrInvalidCommandID         = errors.New("dobot: invalid command id")
	ErrInvalidEnumValue         = errors.New("dobot: invalid enum value")
	ErrInvalidTagVersion        = errors.New("dobot: invalid tag version")
	ErrInvalidAlarmCode         = errors.New("dobot: invalid alarm code")
	ErrInvalidHHTTrigMode       = errors.New("dobot: invalid hht trig mode")
)

// InvalidCommandIDError 携带无法识别的命令字节
type InvalidCommandIDError struct {
	Byte byte
}

func (e *InvalidCommandIDError) Error() string {
	return fmt.Sprintf("dobot: invalid command id %d (0x%02X)", e.Byte, e.Byte)
}

func (e *InvalidCommandIDError) Unwrap() error { return ErrInvalidCommandID }

// InvalidTagVersionError 携带未知的滑轨版本字节
type InvalidTagVersionError struct {
	Byte byte
}

func (e *InvalidTagVersionError) Error() string {
	return fmt.Sprintf("dobot: invalid tag version %d", e.Byte)
}

func (e *InvalidTagVersionError) Unwrap() error { return ErrInvalidTagVersion }

// InvalidAlarmCodeError 报警位图中出现了未定义的报警码
type InvalidAlarmCodeError struct {
	Code int
}

func (e *InvalidAlarmCodeError) Error() string {
	return fmt.Sprintf("dobot: invalid alarm code 0x%02X", e.Code)
}

func (e *InvalidAlarmCodeError) Unwrap() error { return ErrInvalidAlarmCode }

// InvalidHHTTrigModeError 携带未知的手持示教触发模式字节
type InvalidHHTTrigModeError struct {
	Byte byte
}

func (e *InvalidHHTTrigModeError) Error() string {
	return fmt.Sprintf("dobot: invalid hht trig mode %d", e.Byte)
}

func (e *InvalidHHTTrigModeError) Unwrap() error { return ErrInvalidHHTTrigMode }
