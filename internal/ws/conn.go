package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one live client connection as the manager sees it. Implementations
// must tolerate WriteText and Close being called from different goroutines.
type Conn interface {
	WriteText(payload []byte) error
	Close() error
}

// GorillaConn adapts a gorilla websocket connection. Writes are serialized
// with a mutex because gorilla supports at most one concurrent writer.
type GorillaConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewGorillaConn(ws *websocket.Conn) *GorillaConn {
	return &GorillaConn{ws: ws}
}

func (c *GorillaConn) WriteText(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// WriteClose sends a close frame with the given code and reason before the
// underlying connection is torn down.
func (c *GorillaConn) WriteClose(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

func (c *GorillaConn) Close() error {
	return c.ws.Close()
}
