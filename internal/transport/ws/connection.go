package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds each message write so a stalled peer cannot hold the
// writer goroutine forever; the connection is dropped on a deadline error.
const writeTimeout = 5 * time.Second

// sendBuffer is how many events may queue per client before the hub treats
// the client as stalled and drops it.
const sendBuffer = 32

// Connection wraps a gorilla websocket connection. Writes go through a
// buffered queue drained by a single writer goroutine, so broadcasting never
// blocks on a slow peer. Reads exist just to notice the peer going away.
type Connection struct {
	id         string
	socket     *websocket.Conn
	send       chan Event
	done       chan struct{}
	mu         sync.Mutex
	closed     atomic.Bool
	lastActive atomic.Int64
}

// NewConnection creates a tracked websocket connection.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	conn := &Connection{
		id:     id,
		socket: socket,
		send:   make(chan Event, sendBuffer),
		done:   make(chan struct{}),
	}
	conn.touch()
	return conn
}

// Enqueue queues one event for delivery. It never blocks; false means the
// client is stalled (full queue) or gone, and the caller should drop it.
func (c *Connection) Enqueue(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// writePump drains the send queue onto the socket. It exits on the first
// write failure or when the connection is closed.
func (c *Connection) writePump() {
	for {
		select {
		case ev := <-c.send:
			if err := c.writeJSON(ev); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Connection) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("connection %s already closed", c.id)
	}
	if err := c.socket.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := c.socket.WriteJSON(v); err != nil {
		return err
	}
	c.touch()
	return nil
}

// Close terminates the underlying websocket connection and stops the writer.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)
	if c.socket == nil {
		return nil
	}
	return c.socket.Close()
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// IsClosed reports whether the connection has already been closed.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// LastActiveTime exposes when the connection last carried traffic.
func (c *Connection) LastActiveTime() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}
