package server

import (
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mazerun/protocol"
	"mazerun/world"
)

// Recorder 可选的广播/连接记录器，只在房间协程中调用
type Recorder interface {
	RecordSnapshot(room string, tick int64, at time.Time, clients protocol.Clients)
	RecordLifecycle(room, player, event string, at time.Time)
}

// Room 房间权威：维护连接登记表，单协程按固定周期广播全量快照。
// players 只在房间协程中读写，因此不需要锁。
type Room struct {
	ID string

	players map[PlayerID]*Player
	events  chan event
	done    chan struct{}

	world    *world.World
	mapFrame []byte
	interval time.Duration
	log      *zap.SugaredLogger
	metrics  *RoomMetrics
	recorder Recorder
	rng      *rand.Rand
	now      func() time.Time

	dropProb atomic.Uint64 // float64 bits，admin 可热更新
	tickSeq  atomic.Int64
	started  atomic.Bool
}

// ErrRoomClosed 房间协程已退出
var ErrRoomClosed = errors.New("server: room closed")

// RoomOption 房间可选配置
type RoomOption func(*Room)

func WithRecorder(rec Recorder) RoomOption { return func(r *Room) { r.recorder = rec } }
func WithInterval(d time.Duration) RoomOption {
	return func(r *Room) { r.interval = d }
}
func WithRand(rng *rand.Rand) RoomOption { return func(r *Room) { r.rng = rng } }
func WithClock(now func() time.Time) RoomOption {
	return func(r *Room) { r.now = now }
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, w *world.World, log *zap.SugaredLogger, opts ...RoomOption) *Room {
	r := &Room{
		ID:       id,
		players:  make(map[PlayerID]*Player),
		events:   make(chan event, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		done:     make(chan struct{}),
		world:    w,
		interval: tickInterval,
		log:      log.With("room", id),
		metrics:  &RoomMetrics{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	frame, err := protocol.Encode(protocol.TypeMap, protocol.Describe(w))
	if err != nil {
		r.log.Errorw("encode map description", "err", err)
	}
	r.mapFrame = frame
	return r
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }
func (r *Room) TickSeq() int64        { return r.tickSeq.Load() }

func (r *Room) DropProb() float64 { return math.Float64frombits(r.dropProb.Load()) }

// SetDropProb 模拟入站 update 丢包，取值 [0,1]
func (r *Room) SetDropProb(p float64) {
	p = math.Max(0, math.Min(1, p))
	r.dropProb.Store(math.Float64bits(p))
}

// Join 投递加入事件；房间协程中创建空记录并下发 map 与 id。
// 房间已停止时返回 false，连接由调用方关闭
func (r *Room) Join(id PlayerID, conn Sender) bool {
	return r.post(event{kind: evJoin, player: id, conn: conn})
}

// OnUpdate 入站状态上报（不阻塞：通道满则丢弃，保证 Tick 准时）
func (r *Room) OnUpdate(id PlayerID, u protocol.Update) {
	select {
	case r.events <- event{kind: evUpdate, player: id, update: u}:
	case <-r.done:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// RequestLeave 请求在房间协程中移除玩家，避免并发改动登记表
func (r *Room) RequestLeave(id PlayerID) {
	r.post(event{kind: evLeave, player: id})
}

// AnnounceWinner 向全体广播 winner
func (r *Room) AnnounceWinner(id PlayerID) error {
	frame, err := protocol.Encode(protocol.TypeWinner, string(id))
	if err != nil {
		return err
	}
	if !r.post(event{kind: evEmit, frame: frame}) {
		return ErrRoomClosed
	}
	return nil
}

// PublishScoreboard 向全体广播 scoreboard
func (r *Room) PublishScoreboard(sb protocol.Scoreboard) error {
	frame, err := protocol.Encode(protocol.TypeScoreboard, sb)
	if err != nil {
		return err
	}
	if !r.post(event{kind: evEmit, frame: frame}) {
		return ErrRoomClosed
	}
	return nil
}

// post 阻塞投递（加入/离开不可丢）；房间已停止则放弃并返回 false
func (r *Room) post(ev event) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

// ProcessEvents 处理已投递的全部事件（非阻塞 drain）
func (r *Room) ProcessEvents() {
	for {
		select {
		case ev := <-r.events:
			r.apply(ev)
		default:
			return
		}
	}
}

func (r *Room) apply(ev event) {
	switch ev.kind {
	case evJoin:
		r.joinPlayer(ev.player, ev.conn)
	case evUpdate:
		r.applyUpdate(ev.player, ev.update)
	case evLeave:
		r.leavePlayer(ev.player)
	case evEmit:
		r.send(ev.frame)
	}
}

func (r *Room) joinPlayer(id PlayerID, conn Sender) {
	if old, ok := r.players[id]; ok && old.Conn != nil {
		old.Conn.Close()
	}
	now := r.now()
	r.players[id] = &Player{ID: id, JoinedAt: now, Conn: conn}
	r.metrics.IncConnects()
	r.metrics.SetPlayers(len(r.players))

	// 客户端需要先有地图才能在入口处生成本地代理
	if conn != nil {
		if r.mapFrame != nil {
			conn.Enqueue(r.mapFrame)
		}
		if frame, err := protocol.Encode(protocol.TypeID, string(id)); err == nil {
			conn.Enqueue(frame)
		}
	}
	if r.recorder != nil {
		r.recorder.RecordLifecycle(r.ID, string(id), "connect", now)
	}
	r.log.Infow("player joined", "player", id, "players", len(r.players))
}

// applyUpdate 后写覆盖：按到达顺序，不比较时间戳
func (r *Room) applyUpdate(id PlayerID, u protocol.Update) {
	p, ok := r.players[id]
	if !ok {
		r.metrics.IncIgnored()
		r.log.Debugw("update for unknown player ignored", "player", id)
		return
	}
	if prob := r.DropProb(); prob > 0 && r.rng.Float64() < prob {
		r.metrics.IncDropsSimulated()
		return
	}
	pos := u.P
	p.Record = protocol.Record{T: u.T, P: &pos}
	r.metrics.IncAccepted()
}

// leavePlayer 删除记录并广播 removeClient；重复离开不会重复广播
func (r *Room) leavePlayer(id PlayerID) {
	p, ok := r.players[id]
	if !ok {
		return
	}
	if p.Conn != nil {
		p.Conn.Close()
	}
	delete(r.players, id)
	r.metrics.IncDisconnects()
	r.metrics.SetPlayers(len(r.players))

	if frame, err := protocol.Encode(protocol.TypeRemoveClient, string(id)); err == nil {
		r.send(frame)
	}
	if r.recorder != nil {
		r.recorder.RecordLifecycle(r.ID, string(id), "disconnect", r.now())
	}
	r.log.Infow("player left", "player", id, "players", len(r.players))
}

// Snapshot 当前登记表的副本
func (r *Room) Snapshot() protocol.Clients {
	snap := make(protocol.Clients, len(r.players))
	for id, p := range r.players {
		snap[string(id)] = p.Record
	}
	return snap
}

// Broadcast 将当前登记表原样广播给所有连接，无论是否有变化
func (r *Room) Broadcast() {
	snap := r.Snapshot()
	frame, err := protocol.Encode(protocol.TypeClients, snap)
	if err != nil {
		r.log.Errorw("encode clients", "err", err)
		return
	}
	r.send(frame)
	seq := r.tickSeq.Add(1)
	if r.recorder != nil {
		r.recorder.RecordSnapshot(r.ID, seq, r.now(), snap)
	}
}

func (r *Room) send(frame []byte) {
	for _, p := range r.players {
		if p.Conn != nil {
			p.Conn.Enqueue(frame)
		}
	}
}

// shutdown 关闭全部连接
func (r *Room) shutdown() {
	for id, p := range r.players {
		if p.Conn != nil {
			p.Conn.Close()
		}
		delete(r.players, id)
	}
	r.metrics.SetPlayers(0)
}
