package server

import (
	"time"

	"mazerun/protocol"
)

// PlayerID 连接唯一标识（服务端分配）
type PlayerID string

// Sender 连接的发送端；只在房间协程中调用
type Sender interface {
	Enqueue(b []byte)
	Close()
}

// Player 房间内的一个连接及其最后上报的状态
type Player struct {
	ID       PlayerID
	Record   protocol.Record
	JoinedAt time.Time

	Conn Sender
}
