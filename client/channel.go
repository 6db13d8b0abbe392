package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mazerun/protocol"
	"mazerun/world"
)

const writeWait = 5 * time.Second

// Channel 客户端双向通道：读协程把帧解码后投递到 Inbound，Send 串行写
type Channel struct {
	ws  *websocket.Conn
	log *zap.SugaredLogger

	in   chan protocol.Envelope
	done chan struct{}
	wmu  sync.Mutex

	closeOnce sync.Once
	err       error // 读协程退出原因，in 关闭后可读
}

// Dial 连接 serverURL（http/https 基址）下的 /ws?room=
func Dial(ctx context.Context, serverURL, room string, log *zap.SugaredLogger) (*Channel, error) {
	u, err := wsURL(serverURL, room)
	if err != nil {
		return nil, err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	c := &Channel{
		ws:   ws,
		log:  log,
		in:   make(chan protocol.Envelope, 64),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Channel) Inbound() <-chan protocol.Envelope { return c.in }

// Err 读协程退出原因；仅在 Inbound 关闭后有意义
func (c *Channel) Err() error { return c.err }

// Send 编码并写出一帧，无重试
func (c *Channel) Send(typ string, v any) error {
	frame, err := protocol.Encode(typ, v)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Close 发送 close 帧并关闭连接
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.wmu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.wmu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Channel) readLoop() {
	defer close(c.in)
	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		env, err := protocol.Decode(payload)
		if err != nil {
			c.log.Debugw("malformed frame skipped", "err", err)
			continue
		}
		select {
		case c.in <- env:
		case <-c.done:
			return
		}
	}
}

// FetchMap 启动时同步获取静态世界描述
func FetchMap(ctx context.Context, hc *http.Client, serverURL string) (*world.World, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL+"/map", nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch map: %s", resp.Status)
	}
	var desc protocol.MapDescription
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, fmt.Errorf("fetch map: %w", err)
	}
	return desc.Build()
}

func wsURL(serverURL, room string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	q := url.Values{}
	if room != "" {
		q.Set("room", room)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
