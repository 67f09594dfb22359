package dobot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlarmState_AllClear(t *testing.T) {
	var s AlarmState
	require.NoError(t, s.Deserialize(make([]byte, 16)))
	for i, a := range s {
		assert.Nil(t, a, "slot %d", i)
	}
	assert.Empty(t, s.Active())
}

func TestAlarmState_FirstBit(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 0x01

	var s AlarmState
	require.NoError(t, s.Deserialize(buf))
	require.NotNil(t, s[0])
	assert.Equal(t, CommonResetting, *s[0])
	for i := 1; i < AlarmSlots; i++ {
		assert.Nil(t, s[i], "slot %d", i)
	}
}

func TestAlarmState_UndefinedBit(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"Common 段空洞 0x05", 0x05},
		{"Plan 段之后 0x16", 0x16},
		{"LoseStep 之后 0x54", 0x54},
		{"最后一位 0x7F", 0x7F},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 16)
			buf[tt.code/8] |= 1 << (tt.code % 8)

			var s AlarmState
			err := s.Deserialize(buf)
			assert.ErrorIs(t, err, ErrInvalidAlarmCode)
			assert.Equal(t, &InvalidAlarmCodeError{Code: tt.code}, err)
		})
	}
}

func TestAlarmState_RoundTrip(t *testing.T) {
	var in AlarmState
	for _, a := range []Alarm{CommonAngleSensor, PlanJumpParam, OverSpeedAxis3, LimitAxis23Neg, LoseStepAxis4} {
		a := a
		in[a] = &a
	}
	buf := make([]byte, in.Size())
	n, err := in.Serialize(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, byte(1<<4), buf[0])

	var out AlarmState
	require.NoError(t, out.Deserialize(buf))
	assert.Equal(t, []Alarm{CommonAngleSensor, PlanJumpParam, OverSpeedAxis3, LimitAxis23Neg, LoseStepAxis4}, out.Active())
}

func TestAlarmState_Frame(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 0x01
	b, err := Frame[Raw]{Header: Header{ID: AlarmReadState, IsRead: true}, Body: Raw(buf)}.MarshalBinary()
	require.NoError(t, err)

	f, err := ParseFrame[AlarmState](b)
	require.NoError(t, err)
	assert.Equal(t, []Alarm{CommonResetting}, f.Body.Active())
}

func TestParseAlarm(t *testing.T) {
	a, err := ParseAlarm(0x30)
	require.NoError(t, err)
	assert.Equal(t, OverSpeedAxis1, a)
	assert.Equal(t, "OverSpeedAxis1", a.String())

	_, err = ParseAlarm(-1)
	assert.ErrorIs(t, err, ErrInvalidAlarmCode)
	_, err = ParseAlarm(AlarmSlots)
	assert.ErrorIs(t, err, ErrInvalidAlarmCode)
	assert.Equal(t, "Alarm(0x7E)", Alarm(0x7E).String())
}

func TestAlarmCatalog(t *testing.T) {
	c := DefaultAlarmCatalog()
	assert.Equal(t, "joint 1 lost step", c.Describe(LoseStepAxis1))
	assert.Equal(t, "Alarm(0x7E)", c.Describe(Alarm(0x7E)))

	var nilCatalog *AlarmCatalog
	assert.Equal(t, "CommonResetting", nilCatalog.Describe(CommonResetting))
}

func TestLoadAlarmCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alarms.yaml")
	content := "descriptions:\n  0: \"复位中\"\n  80: \"关节1丢步\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loaded, err := LoadAlarmCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "复位中", loaded.Describe(CommonResetting))

	c := DefaultAlarmCatalog()
	c.Merge(loaded)
	assert.Equal(t, "关节1丢步", c.Describe(LoseStepAxis1))
	assert.Equal(t, "joint 2 lost step", c.Describe(LoseStepAxis2))

	_, err = LoadAlarmCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
