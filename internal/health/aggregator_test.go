package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/dobot-link/internal/transport"
)

// mockChecker 模拟检查器
type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: "mock",
		Latency: time.Millisecond,
	}
}

// slowChecker 直到 ctx 结束才返回
type slowChecker struct{}

func (slowChecker) Name() string { return "slow" }

func (slowChecker) Check(ctx context.Context) CheckResult {
	<-ctx.Done()
	return CheckResult{Status: StatusUnhealthy, Message: ctx.Err().Error()}
}

func TestAggregator(t *testing.T) {
	t.Run("全部健康", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"link", StatusHealthy},
			&mockChecker{"database", StatusHealthy},
		)
		assert.Equal(t, StatusHealthy, agg.OverallStatus(context.Background()))
		assert.True(t, agg.Ready(context.Background()))
	})

	t.Run("部分降级仍就绪", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"link", StatusHealthy},
			&mockChecker{"database", StatusDegraded},
		)
		assert.Equal(t, StatusDegraded, agg.OverallStatus(context.Background()))
		assert.True(t, agg.Ready(context.Background()))
	})

	t.Run("不健康优先于降级", func(t *testing.T) {
		agg := NewAggregator(
			&mockChecker{"database", StatusDegraded},
			&mockChecker{"link", StatusUnhealthy},
		)
		assert.Equal(t, StatusUnhealthy, agg.OverallStatus(context.Background()))
		assert.False(t, agg.Ready(context.Background()))
	})

	t.Run("动态添加检查器", func(t *testing.T) {
		agg := NewAggregator(&mockChecker{"initial", StatusHealthy})
		agg.AddChecker(&mockChecker{"added", StatusHealthy})
		assert.Len(t, agg.CheckAll(context.Background()), 2)
	})

	t.Run("单项检查超时", func(t *testing.T) {
		agg := NewAggregator(slowChecker{}, &mockChecker{"link", StatusHealthy})
		agg.timeout = 20 * time.Millisecond

		start := time.Now()
		report := agg.Report(context.Background())
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, StatusUnhealthy, report.Status)
		assert.Equal(t, context.DeadlineExceeded.Error(), report.Checks["slow"].Message)
	})

	t.Run("Alive始终返回true", func(t *testing.T) {
		assert.True(t, NewAggregator().Alive())
	})
}

type fakeBreaker struct{ stats transport.BreakerStats }

func (f fakeBreaker) Stats() transport.BreakerStats { return f.stats }

type fakeSender struct{ poisoned bool }

func (f fakeSender) Poisoned() bool { return f.poisoned }

func TestLinkChecker(t *testing.T) {
	tests := []struct {
		name     string
		stats    transport.BreakerStats
		poisoned bool
		want     Status
	}{
		{"链路正常", transport.BreakerStats{State: "closed"}, false, StatusHealthy},
		{"近期失败", transport.BreakerStats{State: "closed", Failures: 2}, false, StatusDegraded},
		{"半开试探", transport.BreakerStats{State: "half_open"}, false, StatusDegraded},
		{"熔断打开", transport.BreakerStats{State: "open", Trips: 1}, false, StatusUnhealthy},
		{"发送器中毒", transport.BreakerStats{State: "closed"}, true, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLinkChecker("/dev/ttyUSB0", fakeBreaker{tt.stats}, fakeSender{tt.poisoned})
			res := c.Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "/dev/ttyUSB0", res.Details["port"])
			assert.Equal(t, tt.poisoned, res.Details["poisoned"])
		})
	}
}

func TestLinkChecker_RealBreaker(t *testing.T) {
	b := transport.NewBreaker(1, time.Minute)
	b.Record(transport.ErrNoResponse)

	res := NewLinkChecker("COM3", b, nil).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "open", res.Details["breaker_state"])
}

type fakeLease struct {
	holder string
	err    error
}

func (f fakeLease) Key() string   { return "dobot:lease:ttyUSB0" }
func (f fakeLease) Owner() string { return "me" }
func (f fakeLease) Holder(context.Context) (string, error) {
	return f.holder, f.err
}

func TestLeaseChecker(t *testing.T) {
	tests := []struct {
		name  string
		lease fakeLease
		want  Status
	}{
		{"本实例持有", fakeLease{holder: "me"}, StatusHealthy},
		{"租约过期", fakeLease{}, StatusUnhealthy},
		{"被他人持有", fakeLease{holder: "other"}, StatusUnhealthy},
		{"Redis不可达", fakeLease{err: errors.New("dial tcp: refused")}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewLeaseChecker(tt.lease).Check(context.Background()).Status)
		})
	}
}

func TestReadiness(t *testing.T) {
	r := New()
	assert.Equal(t, StatusUnhealthy, r.Check(context.Background()).Status)

	r.SetLinkReady(true)
	assert.False(t, r.Ready())

	r.SetDeviceReady(true)
	assert.True(t, r.Ready())
	assert.Equal(t, StatusHealthy, r.Check(context.Background()).Status)
}

func TestRegisterHTTPRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    Status
		path      string
		wantCode  int
		wantField string
	}{
		{"健康报告", StatusHealthy, "/health", http.StatusOK, "checks"},
		{"降级仍返回200", StatusDegraded, "/health", http.StatusOK, "checks"},
		{"不健康返回503", StatusUnhealthy, "/health", http.StatusServiceUnavailable, "checks"},
		{"就绪", StatusDegraded, "/health/ready", http.StatusOK, "ready"},
		{"未就绪", StatusUnhealthy, "/health/ready", http.StatusServiceUnavailable, "ready"},
		{"存活", StatusUnhealthy, "/health/live", http.StatusOK, "alive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			RegisterHTTPRoutes(r, NewAggregator(&mockChecker{"link", tt.status}))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, tt.wantField)
		})
	}
}
