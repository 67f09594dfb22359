package sender

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

// ReadString 读取字符串类参数（设备名、序列号、WiFi SSID 等）；去掉末尾的 NUL 填充
func (s *Sender) ReadString(ctx context.Context, id dobot.CommandID) (string, error) {
	raw, err := SendCommand[dobot.Raw](ctx, s, Command{ID: id, IsRead: true})
	if err != nil {
		return "", err
	}
	b := bytes.TrimRight(raw, "\x00")
	if !utf8.Valid(b) {
		return "", &Error{Op: "string", ID: id, Err: ErrStrConversion}
	}
	return string(b), nil
}

// WriteString 写入字符串类参数
func (s *Sender) WriteString(ctx context.Context, id dobot.CommandID, v string) error {
	if !utf8.ValidString(v) {
		return &Error{Op: "string", ID: id, Err: ErrStrConversion}
	}
	return s.Exec(ctx, Command{ID: id, Body: dobot.Raw(v)}, nil, nil)
}
