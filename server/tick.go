package server

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 广播频率（20 TPS）
	TicksPerSecond = 20
)

var tickInterval = time.Duration(1000/TicksPerSecond) * time.Millisecond // 50ms

// Tick 一次广播：先应用已到达的事件，再广播。
// 在本次 Tick 开始前投递的事件一定出现在本次广播中。
func (r *Room) Tick() {
	start := time.Now()
	r.ProcessEvents()
	r.Broadcast()
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// Run 房间协程：事件随到随处理，定时器独立于事件触发广播
func (r *Room) Run(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	defer close(r.done)
	defer r.shutdown()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			r.apply(ev)
		case <-ticker.C:
			r.Tick()
		}
	}
}
