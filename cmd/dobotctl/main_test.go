package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/dobot-link/internal/app/bootstrap"
	"github.com/taoyao-code/dobot-link/internal/protocol/dobot"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, bootstrap.Version+"\n", out)
}

func TestQueueWait_InvalidIndex(t *testing.T) {
	_, err := run(t, "queue", "wait", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid queue index")
}

func TestQueueWait_MissingArg(t *testing.T) {
	_, err := run(t, "queue", "wait")
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	g := &globalConfig{port: "/dev/ttyACM1", baud: 9600}
	cfg, err := g.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.Baud)
}

func TestAlarmRows(t *testing.T) {
	rows := alarmRows([]dobot.Alarm{dobot.CommonResetting, dobot.LimitAxis2Neg}, dobot.DefaultAlarmCatalog())
	require.Len(t, rows, 2)
	assert.Equal(t, alarmRow{Code: "0x00", Name: "CommonResetting", Description: "device is resetting"}, rows[0])
	assert.Equal(t, "0x43", rows[1].Code)
	assert.Equal(t, "joint 2 negative limit", rows[1].Description)
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, map[string]uint64{"index": 7}))
	assert.JSONEq(t, `{"index":7}`, buf.String())
}
