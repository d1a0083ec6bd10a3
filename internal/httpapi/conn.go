package httpapi

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Transport is the outbound half of a client connection. Session and room
// registries hold Transports so tests can substitute in-memory fakes.
type Transport interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// lockedConn serializes writes to a websocket connection. The demultiplexer,
// the pipeline driver and room broadcasts may all write concurrently, and
// gorilla/websocket allows only one writer at a time.
type lockedConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newLockedConn(conn *websocket.Conn) *lockedConn {
	return &lockedConn{conn: conn}
}

func (c *lockedConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *lockedConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *lockedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
