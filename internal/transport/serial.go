package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = time.Second

	// 单次 Read 的阻塞上限；tarm/serial 以 0.1s 为最小粒度
	readSlice = 100 * time.Millisecond
)

// Port 串口抽象；实现 io.Closer 时由 Link.Close 关闭
type Port interface {
	io.ReadWriter
}

// flusher 可丢弃输入缓冲区的端口（*serial.Port 实现）
type flusher interface {
	Flush() error
}

// SerialConfig 串口参数
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

func (c SerialConfig) withDefaults() SerialConfig {
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}

// OpenSerial 打开串口（8N1）
func OpenSerial(cfg SerialConfig) (*serial.Port, error) {
	cfg = cfg.withDefaults()
	if cfg.Port == "" {
		return nil, fmt.Errorf("%w: serial port name is empty", ErrSerial)
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: readSlice,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrSerial, cfg.Port, err)
	}
	return p, nil
}
