package world

import "github.com/go-gl/mathgl/mgl64"

// Vec2 平面坐标（格子坐标为 (列, -行)）
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

func (v Vec2) mgl() mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }

// Normalize 单位化；零向量保持为零
func (v Vec2) Normalize() Vec2 {
	m := v.mgl()
	if m.Len() == 0 {
		return Vec2{}
	}
	n := m.Normalize()
	return Vec2{X: n[0], Y: n[1]}
}

// Vec3 世界坐标。线上格式为 {x,y,z}，运算委托给 mgl64
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func FromMgl(m mgl64.Vec3) Vec3 { return Vec3{X: m[0], Y: m[1], Z: m[2]} }

func (v Vec3) Mgl() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func (v Vec3) Add(o Vec3) Vec3         { return FromMgl(v.Mgl().Add(o.Mgl())) }
func (v Vec3) Sub(o Vec3) Vec3         { return FromMgl(v.Mgl().Sub(o.Mgl())) }
func (v Vec3) Scale(s float64) Vec3    { return FromMgl(v.Mgl().Mul(s)) }
func (v Vec3) Len() float64            { return v.Mgl().Len() }
func (v Vec3) ApproxEqual(o Vec3) bool { return v.Mgl().ApproxEqual(o.Mgl()) }

// Lerp 线性插值，t 取 [0,1]
func (v Vec3) Lerp(to Vec3, t float64) Vec3 {
	a := v.Mgl()
	return FromMgl(a.Add(to.Mgl().Sub(a).Mul(t)))
}

// Box 轴对齐包围盒，构建后不可变
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// Intersects 严格重叠判定：任一轴分离（含仅贴面）即不相交。
// 与 Box3 的包含式判定不同，贴墙滑动不算碰撞
func (b Box) Intersects(o Box) bool {
	if b.Max.X <= o.Min.X || b.Min.X >= o.Max.X {
		return false
	}
	if b.Max.Y <= o.Min.Y || b.Min.Y >= o.Max.Y {
		return false
	}
	if b.Max.Z <= o.Min.Z || b.Min.Z >= o.Max.Z {
		return false
	}
	return true
}

// Translate 平移整个盒子
func (b Box) Translate(d Vec3) Box {
	return Box{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}
