package movement

import "mazerun/world"

// Kind 代理类型
type Kind int

const (
	KindLocal Kind = iota
	KindRemote
)

func (k Kind) String() string {
	if k == KindLocal {
		return "local"
	}
	return "remote"
}

// Agent 世界中移动的实体。本地代理只由 Controller 修改，远端代理只由插值器修改
type Agent struct {
	ID           string
	Position     world.Vec3
	Acceleration float64
	Kind         Kind
}

// NewAgent 在格子坐标 spawn 处生成代理，z 取半径使其贴地
func NewAgent(id string, kind Kind, spawn world.Vec2, size float64) *Agent {
	return &Agent{
		ID:       id,
		Position: world.Vec3{X: spawn.X, Y: spawn.Y, Z: size},
		Kind:     kind,
	}
}

// BoundingBox 代理在 pos 处的包围盒：球体向 (+size,+size) 偏移，占据格子左下角
func BoundingBox(pos world.Vec3, size float64) world.Box {
	return world.Box{
		Min: world.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z - size},
		Max: world.Vec3{X: pos.X + 2*size, Y: pos.Y + 2*size, Z: pos.Z + size},
	}
}
