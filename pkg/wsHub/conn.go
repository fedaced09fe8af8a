package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var (
	ErrListenTimeout = errors.New("timed out waiting for websocket message")
	ErrConnClosed    = errors.New("websocket connection closed")
)

// Conn wraps a websocket connection owned by one entity (a user's device).
// Writes are serialized; reads happen only inside Listen.
type Conn struct {
	conn     *websocket.Conn
	entityID string
	doneCtx  context.Context
	cancel   context.CancelFunc

	writeMu sync.Mutex

	subsMu sync.Mutex
	subs   map[string]chan map[string]any
}

func NewConn(ctx context.Context, entityID string, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	return &Conn{
		conn:     conn,
		entityID: entityID,
		doneCtx:  ctx,
		cancel:   cancel,
		subs:     make(map[string]chan map[string]any),
	}
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCtx.Done()
}

// Health pings the peer.
func (c *Conn) Health() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ping()
}

func (c *Conn) ping() error {
	if c.conn == nil {
		return errors.New("connection is nil")
	}
	if c.doneCtx.Err() != nil {
		return ErrConnClosed
	}
	if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Send writes msg as JSON.
func (c *Conn) Send(msg any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.doneCtx.Err() != nil {
		return ErrConnClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return c.conn.WriteJSON(msg)
}

// Subscribe routes incoming messages whose "type" equals msgType to ch instead of the Listen handler.
// Delivery is non-blocking: a full channel drops the message.
func (c *Conn) Subscribe(msgType string, ch chan map[string]any) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subs[msgType] = ch
}

func (c *Conn) Unsubscribe(msgType string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	delete(c.subs, msgType)
}

func (c *Conn) dispatch(msg map[string]any) bool {
	t, _ := msg["type"].(string)

	c.subsMu.Lock()
	ch, ok := c.subs[t]
	c.subsMu.Unlock()
	if !ok {
		return false
	}

	select {
	case ch <- msg:
	default:
	}
	return true
}

// Listen reads JSON messages until the connection fails or is closed.
// Messages are passed to handler in arrival order, one at a time.
func (c *Conn) Listen(handler func(msg map[string]any) error) error {
	for {
		if c.doneCtx.Err() != nil {
			return ErrConnClosed
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := c.Send(map[string]any{"type": "error", "error": "message must be a JSON object"}); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
			continue
		}

		if c.dispatch(msg) {
			continue
		}

		if err := handler(msg); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

func (c *Conn) Close() error {
	c.cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return c.conn.Close()
	}
	return nil
}
