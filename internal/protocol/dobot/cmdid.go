package dobot

import "fmt"

// Group 命令分组：每组占用一个以 10 对齐的字节区间
type Group uint8

const (
	GroupDeviceInfo Group = iota
	GroupDevicePose
	GroupAlarm
	GroupHome
	GroupHht
	GroupArmOrientation
	GroupEndEffector
	GroupJog
	GroupPtp
	GroupCp
	GroupArc
	GroupWait
	GroupTrig
	GroupEio
	GroupCal
	GroupWifi
	GroupLostStep
	GroupCheckModel
	GroupPulseMode
	GroupTest
	GroupQueuedCmd
	groupCount
)

// CommandID 命令字：取值即为线上的 1 字节编码（group.base + offset）
type CommandID uint8

// DeviceInfo 0-5
const (
	DeviceSn CommandID = iota
	DeviceName
	DeviceVersion
	DeviceWithRail
	DeviceTime
	DeviceID
)

// DevicePose 10-13（实时位姿统一走此分组）
const (
	PoseCurrent CommandID = iota + 10
	PoseReset
	PoseKinematics
	PoseRail
)

// Alarm 20-21
const (
	AlarmReadState CommandID = iota + 20
	AlarmClearAll
)

// Home 30-32
const (
	HomeParams CommandID = iota + 30
	HomeCmd
	HomeAutoLeveling
)

// Hht 40-42
const (
	HhtTrigMode CommandID = iota + 40
	HhtTrigOutputEnabled
	HhtTrigOutput
)

const ArmOrientationMode CommandID = 50

// EndEffector 60-63
const (
	EndEffectorParams CommandID = iota + 60
	EndEffectorLaser
	EndEffectorSuctionCup
	EndEffectorGripper
)

// Jog 70-74
const (
	JogJointParams CommandID = iota + 70
	JogCoordinateParams
	JogCommonParams
	JogCmd
	JogRailParams
)

// Ptp 80-89
const (
	PtpJointParams CommandID = iota + 80
	PtpCoordinateParams
	PtpJumpParams
	PtpCommonParams
	PtpCmd
	PtpRailParams
	PtpRailCmd
	PtpJump2Params
	PtpPoCmd
	PtpPoRailCmd
)

// Cp 90-92
const (
	CpParams CommandID = iota + 90
	CpCmd
	CpLeCmd
)

// Arc 100-101
const (
	ArcParams CommandID = iota + 100
	ArcCmd
)

const (
	WaitCmd CommandID = 110
	TrigCmd CommandID = 120
)

// Eio 130-138
const (
	EioMultiplexing CommandID = iota + 130
	EioDo
	EioPwm
	EioDi
	EioAdc
	EioEmotor
	EioEmotorStep
	EioColorSensor
	EioInfraredSensor
)

// Cal 140-143
const (
	CalAngleSensorStaticError CommandID = iota + 140
	CalAngleSensorCoef
	CalBaseDecoderStaticError
	CalLeftRightHandCalibrate
)

// Wifi 150-157
const (
	WifiConfigMode CommandID = iota + 150
	WifiSsid
	WifiPassword
	WifiIPAddress
	WifiNetmask
	WifiGateway
	WifiDNS
	WifiConnectStatus
)

// LostStep 170-171
const (
	LostStepParams CommandID = iota + 170
	LostStepCmd
)

// CheckModel/PulseMode 组内只定义了 offset=1
const (
	CheckModel CommandID = 181
	PulseMode  CommandID = 191
)

// Test 220-221
const (
	TestUserParams CommandID = iota + 220
	TestPtpTime
)

// QueuedCmd 240-248
const (
	QueuedStartExec CommandID = iota + 240
	QueuedStopExec
	QueuedForceStopExec
	QueuedStartDownload
	QueuedStopDownload
	QueuedClear
	QueuedCurrentIndex
	QueuedLeftSpace
	QueuedMotionFinish
)

// groupSpec 注册表的一行：base 为组基址，first 为首个有效 offset
type groupSpec struct {
	group Group
	name  string
	base  uint8
	first uint8
	names []string
}

func (g *groupSpec) count() uint8 { return uint8(len(g.names)) }

// registry 与设备固件一一对应，只允许在末尾追加新分组
var registry = [groupCount]groupSpec{
	{GroupDeviceInfo, "DeviceInfo", 0, 0, []string{"Sn", "Name", "Version", "WithRail", "Time", "Id"}},
	{GroupDevicePose, "DevicePose", 10, 0, []string{"Pose", "ResetPose", "Kinematics", "PoseRail"}},
	{GroupAlarm, "Alarm", 20, 0, []string{"State", "ClearAll"}},
	{GroupHome, "Home", 30, 0, []string{"Params", "Cmd", "AutoLeveling"}},
	{GroupHht, "Hht", 40, 0, []string{"TrigMode", "TrigOutputEnabled", "TrigOutput"}},
	{GroupArmOrientation, "ArmOrientation", 50, 0, []string{"ArmOrientation"}},
	{GroupEndEffector, "EndEffector", 60, 0, []string{"Params", "Laser", "SuctionCup", "Gripper"}},
	{GroupJog, "Jog", 70, 0, []string{"JointParams", "CoordinateParams", "CommonParams", "Cmd", "RailParams"}},
	{GroupPtp, "Ptp", 80, 0, []string{"JointParams", "CoordinateParams", "JumpParams", "CommonParams", "Cmd", "RailParams", "RailCmd", "Jump2Params", "PoCmd", "PoRailCmd"}},
	{GroupCp, "Cp", 90, 0, []string{"Params", "Cmd", "LeCmd"}},
	{GroupArc, "Arc", 100, 0, []string{"Params", "Cmd"}},
	{GroupWait, "Wait", 110, 0, []string{"Cmd"}},
	{GroupTrig, "Trig", 120, 0, []string{"Cmd"}},
	{GroupEio, "Eio", 130, 0, []string{"Multiplexing", "Do", "Pwm", "Di", "Adc", "Emotor", "EmotorStep", "ColorSensor", "InfraredSensor"}},
	{GroupCal, "Cal", 140, 0, []string{"AngleSensorStaticError", "AngleSensorCoef", "BaseDecoderStaticError", "LeftRightHandCalibrate"}},
	{GroupWifi, "Wifi", 150, 0, []string{"ConfigMode", "Ssid", "Password", "IpAddress", "Netmask", "Gateway", "Dns", "ConnectStatus"}},
	{GroupLostStep, "LostStep", 170, 0, []string{"Params", "Cmd"}},
	{GroupCheckModel, "CheckModel", 180, 1, []string{"CheckModel"}},
	{GroupPulseMode, "PulseMode", 190, 1, []string{"PulseMode"}},
	{GroupTest, "Test", 220, 0, []string{"UserParams", "PtpTime"}},
	{GroupQueuedCmd, "QueuedCmd", 240, 0, []string{"StartExec", "StopExec", "ForceStopExec", "StartDownload", "StopDownload", "Clear", "CurrentIndex", "LeftSpace", "MotionFinish"}},
}

// byDecade 按 byte/10 直接索引到分组，未占用的区间为 nil
var byDecade [26]*groupSpec

func init() {
	for i := range registry {
		g := &registry[i]
		byDecade[g.base/10] = g
	}
}

// Encode 由 (group, offset) 计算命令字，不做校验；offset 由调用方保证在组内有效。
// 未知分组与 Group.Base 一致按基址 0 计算，结果可用 Valid 检查。
func Encode(g Group, offset uint8) CommandID {
	return CommandID(g.Base() + offset)
}

// ParseCommandID 将线上字节解析为命令字，未定义的字节返回 InvalidCommandIDError
func ParseCommandID(b byte) (CommandID, error) {
	g := byDecade[b/10]
	if g == nil {
		return 0, &InvalidCommandIDError{Byte: b}
	}
	off := b - g.base
	if off < g.first || off >= g.first+g.count() {
		return 0, &InvalidCommandIDError{Byte: b}
	}
	return CommandID(b), nil
}

// Valid 是否为注册表中定义的命令字
func (id CommandID) Valid() bool {
	_, err := ParseCommandID(byte(id))
	return err == nil
}

// Group 所属分组；调用前应确保 Valid
func (id CommandID) Group() Group {
	if g := byDecade[uint8(id)/10]; g != nil {
		return g.group
	}
	return groupCount
}

// Offset 组内偏移
func (id CommandID) Offset() uint8 {
	return uint8(id) % 10
}

func (id CommandID) String() string {
	g := byDecade[uint8(id)/10]
	if g == nil || !id.Valid() {
		return fmt.Sprintf("CommandID(%d)", uint8(id))
	}
	return g.name + "." + g.names[id.Offset()-g.first]
}

func (g Group) String() string {
	if g >= groupCount {
		return fmt.Sprintf("Group(%d)", uint8(g))
	}
	return registry[g].name
}

// Base 分组基址
func (g Group) Base() uint8 {
	if g >= groupCount {
		return 0
	}
	return registry[g].base
}

// Commands 返回分组内全部已定义的命令字（按 offset 升序）
func (g Group) Commands() []CommandID {
	if g >= groupCount {
		return nil
	}
	spec := &registry[g]
	ids := make([]CommandID, 0, len(spec.names))
	for i := range spec.names {
		ids = append(ids, CommandID(spec.base+spec.first+uint8(i)))
	}
	return ids
}

// Groups 返回全部分组
func Groups() []Group {
	gs := make([]Group, 0, groupCount)
	for g := Group(0); g < groupCount; g++ {
		gs = append(gs, g)
	}
	return gs
}
