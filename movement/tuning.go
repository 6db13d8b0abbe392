package movement

// Tuning 本地移动参数（可由 YAML 覆盖）
type Tuning struct {
	BaseSpeed float64 `yaml:"base_speed"`       // 每步基础位移
	AccelRate float64 `yaml:"accel_rate"`       // 每步加速度增减量
	AgentSize float64 `yaml:"agent_size"`       // 代理半径
	Deadzone  float64 `yaml:"pointer_deadzone"` // 指针死区（NDC）
}

func DefaultTuning() Tuning {
	return Tuning{
		BaseSpeed: 0.05,
		AccelRate: 0.001,
		AgentSize: 0.35,
		Deadzone:  0.025,
	}
}

// withDefaults 未配置（零值）的字段回退为默认值
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.BaseSpeed <= 0 {
		t.BaseSpeed = d.BaseSpeed
	}
	if t.AccelRate <= 0 {
		t.AccelRate = d.AccelRate
	}
	if t.AgentSize <= 0 {
		t.AgentSize = d.AgentSize
	}
	if t.Deadzone <= 0 {
		t.Deadzone = d.Deadzone
	}
	return t
}
