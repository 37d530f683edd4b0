package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write lock so the tick
// goroutine and the action handlers can share it. gorilla/websocket
// supports at most one concurrent writer per connection.
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

// Wrap takes ownership of an upgraded connection.
func Wrap(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(code, errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline. Only one goroutine may read.
func (c *Conn) ReadJSON(v interface{}) error {
	c.ws.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return c.ws.ReadJSON(v)
}
