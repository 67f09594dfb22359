package transport

import "errors"

// 传输层错误，sender 包原样透出
var (
	// ErrNoResponse 在读超时前未收到任何字节
	ErrNoResponse = errors.New("transport: no response")
	// ErrTimeout 收到部分字节但在读超时前未凑成完整帧
	ErrTimeout = errors.New("transport: timeout")
	// ErrSerial 串口读写失败
	ErrSerial = errors.New("transport: serial error")
	// ErrLinkDown 连续无响应次数达到阈值，熔断期内直接拒绝
	ErrLinkDown = errors.New("transport: link down")
)
