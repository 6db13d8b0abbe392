package client

import (
	"context"
	"errors"
	"time"

	"mazerun/movement"
	"mazerun/protocol"
)

// Outbound 发送端（*Channel 实现）
type Outbound interface {
	Send(typ string, v any) error
}

// Scheduler 把模拟步与网络步拆成两个独立调用单元
type Scheduler struct {
	session *Session
	out     Outbound
}

func NewScheduler(s *Session, out Outbound) *Scheduler {
	return &Scheduler{session: s, out: out}
}

func (sc *Scheduler) Session() *Session { return sc.session }

// StepSimulation 推进一帧：远端插值 + 本地预测；尚未分配 id 时只做插值
func (sc *Scheduler) StepSimulation(now time.Time) (movement.StepResult, bool) {
	sc.session.remotes.Advance(now)
	if sc.session.local == nil {
		return movement.StepResult{}, false
	}
	return sc.session.local.Step(), true
}

// TickNetwork 上报一次本地状态
func (sc *Scheduler) TickNetwork(now time.Time) error {
	local := sc.session.local
	if local == nil {
		return nil
	}
	return sc.out.Send(protocol.TypeUpdate, protocol.Update{
		T: now.UnixMilli(),
		P: local.Agent().Position,
	})
}

// Deliver 应用一条入站消息
func (sc *Scheduler) Deliver(env protocol.Envelope, now time.Time) error {
	return sc.session.Handle(env, now)
}

var ErrChannelClosed = errors.New("client: channel closed")

// Driver 单协程驱动循环：渲染帧、网络周期、入站消息互不耦合
type Driver struct {
	Sched   *Scheduler
	Frame   time.Duration // 模拟/渲染步长
	Network time.Duration // 上报周期
	Inbound <-chan protocol.Envelope
	Now     func() time.Time

	// BeforeFrame 每帧模拟前调用（输入源、机器人决策）
	BeforeFrame func(now time.Time)
	// AfterFrame 每帧模拟后调用（渲染）
	AfterFrame func(now time.Time, res movement.StepResult)
}

func (d *Driver) Run(ctx context.Context) error {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	frame := d.Frame
	if frame <= 0 {
		frame = time.Second / 60
	}
	network := d.Network
	if network <= 0 {
		network = protocol.UpdateIntervalMs * time.Millisecond
	}

	frameT := time.NewTicker(frame)
	defer frameT.Stop()
	netT := time.NewTicker(network)
	defer netT.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-d.Inbound:
			if !ok {
				return ErrChannelClosed
			}
			if err := d.Sched.Deliver(env, now()); err != nil {
				d.Sched.session.log.Warnw("bad message", "type", env.Type, "err", err)
			}
		case <-frameT.C:
			t := now()
			if d.BeforeFrame != nil {
				d.BeforeFrame(t)
			}
			res, _ := d.Sched.StepSimulation(t)
			if d.AfterFrame != nil {
				d.AfterFrame(t, res)
			}
		case <-netT.C:
			if err := d.Sched.TickNetwork(now()); err != nil {
				return err
			}
		}
	}
}
