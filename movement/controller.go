package movement

import (
	"math"

	"mazerun/world"
)

// Collider 静态碰撞检测，*world.World 实现该接口
type Collider interface {
	Collides(world.Box) bool
}

// Projector 把世界坐标投影到屏幕 NDC（由相机/渲染层提供）
type Projector interface {
	Project(world.Vec3) world.Vec2
}

// StepResult 单步模拟的结果
type StepResult struct {
	Candidate world.Vec3
	Colliding bool
	Moving    bool
}

// Controller 本地代理控制器：每帧执行 预测 → 碰撞 → 提交 → 更新加速度
type Controller struct {
	agent  *Agent
	walls  Collider
	proj   Projector
	intent Intent
	tuning Tuning
}

func NewController(agent *Agent, walls Collider, t Tuning) *Controller {
	return &Controller{
		agent:  agent,
		walls:  walls,
		tuning: t.withDefaults(),
	}
}

func (c *Controller) Agent() *Agent   { return c.agent }
func (c *Controller) Intent() *Intent { return &c.intent }
func (c *Controller) Tuning() Tuning  { return c.tuning }

// SetProjector 设置屏幕投影；未设置时指针方向需由调用方 Aim
func (c *Controller) SetProjector(p Projector) { c.proj = p }

// SetWorld 地图替换后切换碰撞源
func (c *Controller) SetWorld(walls Collider) { c.walls = walls }

// Respawn 把代理放回出生点并清零加速度
func (c *Controller) Respawn(spawn world.Vec2) {
	c.agent.Position = world.Vec3{X: spawn.X, Y: spawn.Y, Z: c.tuning.AgentSize}
	c.agent.Acceleration = 0
}

// Step 推进一步。碰撞检测每步只做一次，提交与加速度更新共用同一结果
func (c *Controller) Step() StepResult {
	a := c.agent
	if c.intent.Pointer.Active && c.proj != nil {
		c.intent.Aim(c.proj.Project(a.Position), c.tuning.Deadzone)
	}

	candidate := Predict(a.Position, a.Acceleration, &c.intent, c.tuning)
	colliding := c.walls != nil && c.walls.Collides(BoundingBox(candidate, c.tuning.AgentSize))
	if !colliding {
		a.Position = candidate
	}

	moving := !colliding && c.intent.Active()
	switch {
	case colliding:
		a.Acceleration = 0
	case moving:
		a.Acceleration += c.tuning.AccelRate
	default:
		a.Acceleration = math.Max(a.Acceleration-c.tuning.AccelRate, 0)
	}
	return StepResult{Candidate: candidate, Colliding: colliding, Moving: moving}
}
