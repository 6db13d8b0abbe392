package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mazerun/protocol"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 10 * time.Second
	readLimit    = 1 << 20 // 1MB
	sendQueueLen = 64
)

// ClientConn 负责发送（写）数据到客户端的轻量包装。
// Enqueue/Close 只在房间协程中调用；writePump 是 send 的唯一读者。
type ClientConn struct {
	ws      *websocket.Conn
	send    chan []byte
	closed  bool
	metrics *RoomMetrics
}

func NewClientConn(ws *websocket.Conn, metrics *RoomMetrics) *ClientConn {
	return &ClientConn{
		ws:      ws,
		send:    make(chan []byte, sendQueueLen),
		metrics: metrics,
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
		if c.metrics != nil {
			c.metrics.IncSendDiscarded()
		}
	}
}

// Close 关闭发送队列，写协程发出 close 帧后关闭连接
func (c *ClientConn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端 update，投递到房间
func (c *ClientConn) readPump(room *Room, id PlayerID, log *zap.SugaredLogger) {
	defer c.ws.Close()
	// 读泵退出时，通知房间在其协程中移除该玩家
	defer room.RequestLeave(id)
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugw("read error", "player", id, "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		env, err := protocol.Decode(payload)
		if err != nil {
			room.metrics.IncMalformed()
			continue
		}
		if env.Type != protocol.TypeUpdate {
			continue
		}
		var u protocol.Update
		if err := env.Unmarshal(&u); err != nil {
			room.metrics.IncMalformed()
			continue
		}
		room.OnUpdate(id, u)
	}
}

// HandleWS WebSocket 接入：?room=room-1，连接 id 由服务端分配
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("upgrade error", "err", err)
		return
	}

	room := s.rooms.GetOrCreateRoom(r.URL.Query().Get("room"))
	id := PlayerID(uuid.NewString())

	client := NewClientConn(ws, room.metrics)
	if !room.Join(id, client) {
		// 房间已停止（关闭过程中）
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "room closed"), time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}

	go client.writePump()
	go client.readPump(room, id, s.log)
}
