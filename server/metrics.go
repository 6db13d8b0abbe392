package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 广播次数
	UpdatesAccepted   int64 // 写入登记表的 update 数
	UpdatesIgnored    int64 // 连接已移除而被忽略的 update 数
	DropsSimulated    int64 // 因模拟丢包被丢弃的 update 数
	ChanFullDiscarded int64 // 因事件通道满被丢弃的 update 数
	SendDiscarded     int64 // 因发送队列满被丢弃的帧数
	Malformed         int64 // 无法解析的入站帧
	Connects          int64
	Disconnects       int64
	Players           int64 // 当前连接数
	TotalTickNs       int64 // 广播累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.UpdatesAccepted, 1) }
func (m *RoomMetrics) IncIgnored()           { atomic.AddInt64(&m.UpdatesIgnored, 1) }
func (m *RoomMetrics) IncDropsSimulated()    { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncSendDiscarded()     { atomic.AddInt64(&m.SendDiscarded, 1) }
func (m *RoomMetrics) IncMalformed()         { atomic.AddInt64(&m.Malformed, 1) }
func (m *RoomMetrics) IncConnects()          { atomic.AddInt64(&m.Connects, 1) }
func (m *RoomMetrics) IncDisconnects()       { atomic.AddInt64(&m.Disconnects, 1) }
func (m *RoomMetrics) SetPlayers(n int)      { atomic.StoreInt64(&m.Players, int64(n)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"updates_accepted":    atomic.LoadInt64(&m.UpdatesAccepted),
		"updates_ignored":     atomic.LoadInt64(&m.UpdatesIgnored),
		"drops_simulated":     atomic.LoadInt64(&m.DropsSimulated),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"send_discarded":      atomic.LoadInt64(&m.SendDiscarded),
		"malformed":           atomic.LoadInt64(&m.Malformed),
		"connects":            atomic.LoadInt64(&m.Connects),
		"disconnects":         atomic.LoadInt64(&m.Disconnects),
		"players":             atomic.LoadInt64(&m.Players),
		"avg_tick_ms":         avgMs,
	}
}
