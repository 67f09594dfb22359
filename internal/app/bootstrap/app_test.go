package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"带密码", "postgres://dobot:s3cret@db:5432/dobot?sslmode=disable", "postgres://dobot:****@db:5432/dobot?sslmode=disable"},
		{"无密码", "postgres://localhost/dobot", "postgres://localhost/dobot"},
		{"仅用户", "postgres://dobot@db/dobot", "postgres://dobot@db/dobot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskDSN(tt.dsn))
		})
	}
}
