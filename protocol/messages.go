package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"mazerun/world"
)

// 消息类型（WebSocket 文本帧中的 type 字段）
const (
	TypeID           = "id"
	TypeMap          = "map"
	TypeUpdate       = "update"
	TypeClients      = "clients"
	TypeRemoveClient = "removeClient"
	TypeWinner       = "winner"
	TypeScoreboard   = "scoreboard"
)

// UpdateIntervalMs 客户端上报与服务端广播的固定周期
const UpdateIntervalMs = 50

var ErrMissingType = errors.New("protocol: message without type")

// Envelope 所有消息的外层结构：{"type":..., "data":...}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Update 客户端周期上报的本地状态
type Update struct {
	T int64      `json:"t"` // 客户端时间戳（毫秒）
	P world.Vec3 `json:"p"`
}

// Record 服务端为每个连接保存的最后上报；连接建立后、首次上报前 P 为空
type Record struct {
	T int64       `json:"t,omitempty"`
	P *world.Vec3 `json:"p,omitempty"`
}

// Clients 全量快照：连接 id → 最后上报
type Clients map[string]Record

// Scoreboard 连接 id → 分数
type Scoreboard map[string]float64

// MapDescription 静态世界描述（/map 与 map 消息共用）
type MapDescription struct {
	Map               [][]int      `json:"map"`
	Width             int          `json:"width"`
	Height            int          `json:"height"`
	WalkablePositions []world.Vec2 `json:"walkablePositions"`
	Entrance          world.Vec2   `json:"entrance"`
	Exit              world.Vec2   `json:"exit"`
}

// Describe 从只读世界生成描述
func Describe(w *world.World) MapDescription {
	return MapDescription{
		Map:               w.Grid(),
		Width:             w.Width(),
		Height:            w.Height(),
		WalkablePositions: w.Walkable(),
		Entrance:          w.Entrance(),
		Exit:              w.Exit(),
	}
}

// Build 客户端据描述重建世界；宽高与可走格由格子重新推导
func (d MapDescription) Build() (*world.World, error) {
	entrance, exit := d.Entrance, d.Exit
	return world.New(d.Map, &entrance, &exit)
}

// Encode 打包为一帧
func Encode(typ string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Data: data})
}

// Decode 解析外层结构，data 延迟到 Unmarshal
func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return e, err
	}
	if e.Type == "" {
		return e, ErrMissingType
	}
	return e, nil
}

// Unmarshal 解析 data 字段
func (e Envelope) Unmarshal(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return nil
}
