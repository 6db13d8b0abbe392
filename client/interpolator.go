package client

import (
	"sort"
	"time"

	"mazerun/movement"
	"mazerun/protocol"
	"mazerun/world"
)

// DefaultTransition 两次权威快照之间的平滑时长，与广播周期一致
const DefaultTransition = protocol.UpdateIntervalMs * time.Millisecond

// transition 一段线性过渡
type transition struct {
	from, to world.Vec3
	start    time.Time
}

// Interpolator 远端代理的渲染位置平滑器。
// 新快照到达时替换进行中的过渡（不排队），从当前渲染位置重新出发。
type Interpolator struct {
	localID  string
	duration time.Duration
	spawn    world.Vec2
	size     float64

	agents map[string]*movement.Agent
	moves  map[string]*transition
}

func NewInterpolator(duration time.Duration, spawn world.Vec2, size float64) *Interpolator {
	if duration <= 0 {
		duration = DefaultTransition
	}
	return &Interpolator{
		duration: duration,
		spawn:    spawn,
		size:     size,
		agents:   make(map[string]*movement.Agent),
		moves:    make(map[string]*transition),
	}
}

// SetLocalID 本地代理的 id，快照中的该项被跳过
func (ip *Interpolator) SetLocalID(id string) {
	ip.localID = id
	ip.Remove(id)
}

// Apply 应用一次快照，返回首次出现的 id
func (ip *Interpolator) Apply(snap protocol.Clients, now time.Time) []string {
	ip.Advance(now)

	var created []string
	for id, rec := range snap {
		if id == ip.localID {
			continue
		}
		a, seen := ip.agents[id]
		if !seen {
			a = movement.NewAgent(id, movement.KindRemote, ip.spawn, ip.size)
			if rec.P != nil {
				a.Position = *rec.P
			}
			ip.agents[id] = a
			created = append(created, id)
			continue
		}
		if rec.P == nil {
			continue
		}
		ip.moves[id] = &transition{from: a.Position, to: *rec.P, start: now}
	}
	sort.Strings(created)
	return created
}

// Advance 推进所有过渡到 now
func (ip *Interpolator) Advance(now time.Time) {
	for id, tr := range ip.moves {
		a, ok := ip.agents[id]
		if !ok {
			delete(ip.moves, id)
			continue
		}
		t := float64(now.Sub(tr.start)) / float64(ip.duration)
		if t >= 1 {
			a.Position = tr.to
			delete(ip.moves, id)
			continue
		}
		if t < 0 {
			t = 0
		}
		a.Position = tr.from.Lerp(tr.to, t)
	}
}

// Remove 立即移除代理及其过渡
func (ip *Interpolator) Remove(id string) bool {
	_, ok := ip.agents[id]
	delete(ip.agents, id)
	delete(ip.moves, id)
	return ok
}

// Respawn 地图替换后把全部远端代理放回入口
func (ip *Interpolator) Respawn(spawn world.Vec2) {
	ip.spawn = spawn
	for id, a := range ip.agents {
		a.Position = world.Vec3{X: spawn.X, Y: spawn.Y, Z: a.Position.Z}
		delete(ip.moves, id)
	}
}

func (ip *Interpolator) Agent(id string) (*movement.Agent, bool) {
	a, ok := ip.agents[id]
	return a, ok
}

// InFlight 是否有进行中的过渡
func (ip *Interpolator) InFlight(id string) bool {
	_, ok := ip.moves[id]
	return ok
}

// Agents 按 id 排序的远端代理
func (ip *Interpolator) Agents() []*movement.Agent {
	out := make([]*movement.Agent, 0, len(ip.agents))
	for _, a := range ip.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
