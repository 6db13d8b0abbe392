package movement

import "mazerun/world"

// Predict 由当前位置、加速度与意图外推下一步的候选位置。
// 方向键的单位向量直接相加，斜向移动比轴向快。
func Predict(pos world.Vec3, accel float64, in *Intent, t Tuning) world.Vec3 {
	speed := t.BaseSpeed + accel
	next := pos

	if in.Pointer.Active {
		dir := in.Pointer.Dir.Normalize()
		next.X += dir.X * speed
		next.Y += dir.Y * speed
		return next
	}
	for _, d := range directions {
		if in.Held(d) {
			u := d.unit()
			next.X += u.X * speed
			next.Y += u.Y * speed
		}
	}
	return next
}
