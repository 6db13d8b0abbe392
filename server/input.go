package server

import (
	"mazerun/protocol"
)

type eventKind int

const (
	evJoin eventKind = iota + 1
	evUpdate
	evLeave
	evEmit
)

// event 入站事件：由读协程/HTTP 协程投递，只在房间协程中应用
type event struct {
	kind   eventKind
	player PlayerID
	conn   Sender
	update protocol.Update
	frame  []byte
}
