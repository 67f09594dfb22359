package dobot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AlarmCatalog 报警码 -> 描述文本
type AlarmCatalog struct {
	Descriptions map[int]string `yaml:"descriptions"`
}

// DefaultAlarmCatalog 返回内置的报警描述
func DefaultAlarmCatalog() *AlarmCatalog {
	return &AlarmCatalog{
		Descriptions: map[int]string{
			int(CommonResetting):            "device is resetting",
			int(CommonUndefinedInstruction): "undefined instruction",
			int(CommonFileSystem):           "file system error",
			int(CommonMcuFpgaComm):          "MCU/FPGA communication failure",
			int(CommonAngleSensor):          "angle sensor read error",
			int(PlanInvSingularity):         "planning: target is a singular point",
			int(PlanInvCalc):                "planning: inverse kinematics unreachable",
			int(PlanInvLimit):               "planning: inverse kinematics out of joint limit",
			int(PlanPushDataRepeat):         "planning: repeated data point",
			int(PlanArcInput):               "planning: invalid arc parameters",
			int(PlanJumpParam):              "planning: invalid jump parameters",
			int(MoveInvSingularity):         "motion: passes through a singular point",
			int(MoveInvCalc):                "motion: inverse kinematics unreachable",
			int(MoveInvLimit):               "motion: out of joint limit",
			int(OverSpeedAxis1):             "joint 1 over speed",
			int(OverSpeedAxis2):             "joint 2 over speed",
			int(OverSpeedAxis3):             "joint 3 over speed",
			int(OverSpeedAxis4):             "joint 4 over speed",
			int(LimitAxis1Pos):              "joint 1 positive limit",
			int(LimitAxis1Neg):              "joint 1 negative limit",
			int(LimitAxis2Pos):              "joint 2 positive limit",
			int(LimitAxis2Neg):              "joint 2 negative limit",
			int(LimitAxis3Pos):              "joint 3 positive limit",
			int(LimitAxis3Neg):              "joint 3 negative limit",
			int(LimitAxis4Pos):              "joint 4 positive limit",
			int(LimitAxis4Neg):              "joint 4 negative limit",
			int(LimitAxis23Pos):             "joint 2/3 parallel positive limit",
			int(LimitAxis23Neg):             "joint 2/3 parallel negative limit",
			int(LoseStepAxis1):              "joint 1 lost step",
			int(LoseStepAxis2):              "joint 2 lost step",
			int(LoseStepAxis3):              "joint 3 lost step",
			int(LoseStepAxis4):              "joint 4 lost step",
		},
	}
}

// LoadAlarmCatalog 从 YAML 文件加载报警描述（通常与默认表 Merge 后使用）
func LoadAlarmCatalog(path string) (*AlarmCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alarm catalog: %w", err)
	}
	var c AlarmCatalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal alarm catalog: %w", err)
	}
	if c.Descriptions == nil {
		c.Descriptions = make(map[int]string)
	}
	return &c, nil
}

// Describe 返回报警描述，未知报警码回退为名称
func (c *AlarmCatalog) Describe(a Alarm) string {
	if c != nil && c.Descriptions != nil {
		if d, ok := c.Descriptions[int(a)]; ok {
			return d
		}
	}
	return a.String()
}

// Merge 用 other 中的条目覆盖当前表
func (c *AlarmCatalog) Merge(other *AlarmCatalog) {
	if c == nil || other == nil || other.Descriptions == nil {
		return
	}
	if c.Descriptions == nil {
		c.Descriptions = make(map[int]string, len(other.Descriptions))
	}
	for k, v := range other.Descriptions {
		c.Descriptions[k] = v
	}
}
