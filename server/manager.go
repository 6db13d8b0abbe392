package server

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"mazerun/world"
)

// DefaultRoomID 未指定 room 时使用的房间
const DefaultRoomID = "room-1"

// Manager 管理多个房间的生命周期；所有房间共享同一个只读世界
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	ctx   context.Context
	wg    sync.WaitGroup
	world *world.World
	log   *zap.SugaredLogger
	opts  []RoomOption
}

// NewManager 房间协程随 ctx 结束
func NewManager(ctx context.Context, w *world.World, log *zap.SugaredLogger, opts ...RoomOption) *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
		ctx:   ctx,
		world: w,
		log:   log,
		opts:  opts,
	}
}

func (m *Manager) World() *world.World { return m.world }

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *Manager) GetOrCreateRoom(id string) *Room {
	if id == "" {
		id = DefaultRoomID
	}
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r
	}
	r = NewRoom(id, m.world, m.log, m.opts...)
	m.rooms[id] = r
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		r.Run(m.ctx)
	}()
	m.log.Infow("room created", "room", id)
	return r
}

// Room 查找已存在的房间
func (m *Manager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RoomIDs 已创建的房间，按名称排序
func (m *Manager) RoomIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Wait 等待所有房间协程退出（ctx 取消之后）
func (m *Manager) Wait() { m.wg.Wait() }
