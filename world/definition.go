package world

// Definition 世界的静态描述（YAML 配置）
type Definition struct {
	Grid     [][]int `yaml:"grid"`
	Entrance *Vec2   `yaml:"entrance,omitempty"`
	Exit     *Vec2   `yaml:"exit,omitempty"`
}

// Build 构建只读世界
func (d Definition) Build() (*World, error) {
	return New(d.Grid, d.Entrance, d.Exit)
}
