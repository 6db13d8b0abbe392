package movement

import (
	"math"

	"mazerun/world"
)

// Direction 方向键意图
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

var directions = [...]Direction{DirUp, DirDown, DirLeft, DirRight}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// unit 方向的单位向量（y 轴向上）
func (d Direction) unit() world.Vec2 {
	switch d {
	case DirUp:
		return world.Vec2{Y: 1}
	case DirDown:
		return world.Vec2{Y: -1}
	case DirLeft:
		return world.Vec2{X: -1}
	case DirRight:
		return world.Vec2{X: 1}
	}
	return world.Vec2{}
}

// ParseKey 只识别方向键，其他按键返回 false
func ParseKey(key string) (Direction, bool) {
	switch key {
	case "ArrowUp":
		return DirUp, true
	case "ArrowDown":
		return DirDown, true
	case "ArrowLeft":
		return DirLeft, true
	case "ArrowRight":
		return DirRight, true
	}
	return DirNone, false
}

// Button 指针按键
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Pointer 指针意图：Target 为指针的 NDC 坐标，Dir 为代理指向指针的向量
type Pointer struct {
	Active bool
	Target world.Vec2
	Dir    world.Vec2
}

// Intent 本地用户的输入快照，由输入事件改写、由控制器每步轮询
type Intent struct {
	held    [DirRight + 1]bool
	Pointer Pointer
}

func (d Direction) valid() bool { return d > DirNone && d <= DirRight }

func (in *Intent) Press(d Direction) {
	if d.valid() {
		in.held[d] = true
	}
}

func (in *Intent) Release(d Direction) {
	if d.valid() {
		in.held[d] = false
	}
}

func (in *Intent) Held(d Direction) bool { return d.valid() && in.held[d] }

// KeyDown / KeyUp 键盘边沿事件
func (in *Intent) KeyDown(key string) {
	if d, ok := ParseKey(key); ok {
		in.Press(d)
	}
}

func (in *Intent) KeyUp(key string) {
	if d, ok := ParseKey(key); ok {
		in.Release(d)
	}
}

// PointerDown 主键按下进入指针模式
func (in *Intent) PointerDown(b Button) {
	if b != ButtonPrimary {
		return
	}
	in.Pointer.Active = true
}

// PointerUp 主键松开：清空全部意图（包括方向键）
func (in *Intent) PointerUp(b Button) {
	if b != ButtonPrimary {
		return
	}
	in.held = [DirRight + 1]bool{}
	in.Pointer.Active = false
}

// PointerMove 记录指针的 NDC 坐标
func (in *Intent) PointerMove(target world.Vec2) {
	in.Pointer.Target = target
}

// Aim 以代理的屏幕位置重算指针方向，双轴都落在死区内则归零
func (in *Intent) Aim(agent world.Vec2, deadzone float64) {
	dx := in.Pointer.Target.X - agent.X
	dy := in.Pointer.Target.Y - agent.Y
	if math.Abs(dx) <= deadzone && math.Abs(dy) <= deadzone {
		in.Pointer.Dir = world.Vec2{}
		return
	}
	in.Pointer.Dir = world.Vec2{X: dx, Y: dy}
}

// Active 是否有任意方向键或指针意图
func (in *Intent) Active() bool {
	if in.Pointer.Active {
		return true
	}
	for _, d := range directions {
		if in.held[d] {
			return true
		}
	}
	return false
}

// Reset 清空全部意图
func (in *Intent) Reset() { *in = Intent{} }
