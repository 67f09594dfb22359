package dobot

import "fmt"

// AlarmSlots 报警位图覆盖的报警码数量（16 字节 × 8 位）
const AlarmSlots = 128

const alarmStateSize = AlarmSlots / 8

// Alarm 报警码，取值等于位图中的位序号
type Alarm uint8

const (
	CommonResetting            Alarm = 0x00
	CommonUndefinedInstruction Alarm = 0x01
	CommonFileSystem           Alarm = 0x02
	CommonMcuFpgaComm          Alarm = 0x03
	CommonAngleSensor          Alarm = 0x04

	PlanInvSingularity Alarm = 0x10
	PlanInvCalc        Alarm = 0x11
	PlanInvLimit       Alarm = 0x12
	PlanPushDataRepeat Alarm = 0x13
	PlanArcInput       Alarm = 0x14
	PlanJumpParam      Alarm = 0x15

	MoveInvSingularity Alarm = 0x20
	MoveInvCalc        Alarm = 0x21
	MoveInvLimit       Alarm = 0x22

	OverSpeedAxis1 Alarm = 0x30
	OverSpeedAxis2 Alarm = 0x31
	OverSpeedAxis3 Alarm = 0x32
	OverSpeedAxis4 Alarm = 0x33

	LimitAxis1Pos  Alarm = 0x40
	LimitAxis1Neg  Alarm = 0x41
	LimitAxis2Pos  Alarm = 0x42
	LimitAxis2Neg  Alarm = 0x43
	LimitAxis3Pos  Alarm = 0x44
	LimitAxis3Neg  Alarm = 0x45
	LimitAxis4Pos  Alarm = 0x46
	LimitAxis4Neg  Alarm = 0x47
	LimitAxis23Pos Alarm = 0x48
	LimitAxis23Neg Alarm = 0x49

	LoseStepAxis1 Alarm = 0x50
	LoseStepAxis2 Alarm = 0x51
	LoseStepAxis3 Alarm = 0x52
	LoseStepAxis4 Alarm = 0x53
)

var alarmNames = map[Alarm]string{
	CommonResetting:            "CommonResetting",
	CommonUndefinedInstruction: "CommonUndefinedInstruction",
	CommonFileSystem:           "CommonFileSystem",
	CommonMcuFpgaComm:          "CommonMcuFpgaComm",
	CommonAngleSensor:          "CommonAngleSensor",
	PlanInvSingularity:         "PlanInvSingularity",
	PlanInvCalc:                "PlanInvCalc",
	PlanInvLimit:               "PlanInvLimit",
	PlanPushDataRepeat:         "PlanPushDataRepeat",
	PlanArcInput:               "PlanArcInput",
	PlanJumpParam:              "PlanJumpParam",
	MoveInvSingularity:         "MoveInvSingularity",
	MoveInvCalc:                "MoveInvCalc",
	MoveInvLimit:               "MoveInvLimit",
	OverSpeedAxis1:             "OverSpeedAxis1",
	OverSpeedAxis2:             "OverSpeedAxis2",
	OverSpeedAxis3:             "OverSpeedAxis3",
	OverSpeedAxis4:             "OverSpeedAxis4",
	LimitAxis1Pos:              "LimitAxis1Pos",
	LimitAxis1Neg:              "LimitAxis1Neg",
	LimitAxis2Pos:              "LimitAxis2Pos",
	LimitAxis2Neg:              "LimitAxis2Neg",
	LimitAxis3Pos:              "LimitAxis3Pos",
	LimitAxis3Neg:              "LimitAxis3Neg",
	LimitAxis4Pos:              "LimitAxis4Pos",
	LimitAxis4Neg:              "LimitAxis4Neg",
	LimitAxis23Pos:             "LimitAxis23Pos",
	LimitAxis23Neg:             "LimitAxis23Neg",
	LoseStepAxis1:              "LoseStepAxis1",
	LoseStepAxis2:              "LoseStepAxis2",
	LoseStepAxis3:              "LoseStepAxis3",
	LoseStepAxis4:              "LoseStepAxis4",
}

// ParseAlarm 校验报警码是否已定义
func ParseAlarm(code int) (Alarm, error) {
	if code < 0 || code >= AlarmSlots {
		return 0, &InvalidAlarmCodeError{Code: code}
	}
	a := Alarm(code)
	if _, ok := alarmNames[a]; !ok {
		return 0, &InvalidAlarmCodeError{Code: code}
	}
	return a, nil
}

func (a Alarm) String() string {
	if n, ok := alarmNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Alarm(0x%02X)", uint8(a))
}

// AlarmState Alarm.State 的响应体：位 i 置位表示报警码 i 处于激活状态，nil 表示未激活
type AlarmState [AlarmSlots]*Alarm

func (AlarmState) Size() int { return alarmStateSize }

func (s AlarmState) Serialize(buf []byte) (int, error) {
	if len(buf) < alarmStateSize {
		return 0, ErrBufferTooSmall
	}
	for i := 0; i < alarmStateSize; i++ {
		buf[i] = 0
	}
	for i, a := range s {
		if a != nil {
			buf[i/8] |= 1 << (i % 8)
		}
	}
	return alarmStateSize, nil
}

func (s *AlarmState) Deserialize(buf []byte) error {
	if len(buf) < alarmStateSize {
		return ErrBufferTooSmall
	}
	var out AlarmState
	for i := 0; i < AlarmSlots; i++ {
		if buf[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		a, err := ParseAlarm(i)
		if err != nil {
			return err
		}
		out[i] = &a
	}
	*s = out
	return nil
}

// Active 返回全部激活的报警码（按码值升序）
func (s *AlarmState) Active() []Alarm {
	var out []Alarm
	for _, a := range s {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}
