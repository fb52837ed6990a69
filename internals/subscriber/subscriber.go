// Package subscriber provides WebSocket peer management for the gated Pub/Sub system.
package subscriber

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tanmay-xvx/gated-pubsub/internals/models"
)

// Conn wraps a WebSocket connection with a write mutex. One connection can
// carry several per-topic peers plus direct server replies; every write must
// go through this wrapper because gorilla/websocket forbids concurrent writes.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewConn wraps an upgraded WebSocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// WriteJSON writes a frame as JSON under the connection's write lock.
// A timeout of zero or less means no write deadline.
func (c *Conn) WriteJSON(v interface{}, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteJSON(v)
}

// ReadMessage reads the next frame from the connection.
// Reads are single-goroutine per connection and need no locking.
func (c *Conn) ReadMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

// Close closes the underlying WebSocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

// Subscriber represents one peer on one topic: a buffered send channel
// drained by a dedicated writer goroutine onto the shared connection.
type Subscriber struct {
	ClientID string
	Conn     *Conn
	Send     chan models.ServerMsg
	Done     chan struct{}

	quit      chan struct{}
	closeOnce sync.Once
}

// NewSubscriber creates a new peer with the specified client ID and shared
// connection. The buf parameter sets the Send channel buffer size.
func NewSubscriber(clientID string, conn *Conn, buf int) *Subscriber {
	if buf <= 0 {
		buf = 100 // Default buffer size
	}

	return &Subscriber{
		ClientID: clientID,
		Conn:     conn,
		Send:     make(chan models.ServerMsg, buf),
		Done:     make(chan struct{}),
		quit:     make(chan struct{}),
	}
}

// StartWriter launches the goroutine that drains the Send channel and writes
// frames to the shared connection. The writer stops on Close or on a write
// error and closes the Done channel on exit. Stopping the peer does not close
// the shared connection; other peers and direct replies may still be using it.
func (s *Subscriber) StartWriter(writeTimeout time.Duration) {
	go func() {
		defer close(s.Done)

		for {
			select {
			case <-s.quit:
				return

			case msg := <-s.Send:
				if err := s.Conn.WriteJSON(msg, writeTimeout); err != nil {
					log.Printf("Peer %s: failed to write frame: %v", s.ClientID, err)
					return
				}
			}
		}
	}()
}

// Close stops the peer. Queued frames that the writer has not drained yet are
// discarded. Safe to call multiple times; the shared connection is left open.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

// TrySend enqueues a frame for the peer without blocking.
// Returns false if the peer is stopped or its buffer is full.
func (s *Subscriber) TrySend(msg models.ServerMsg) bool {
	select {
	case <-s.quit:
		return false
	default:
	}

	select {
	case s.Send <- msg:
		return true
	default:
		return false
	}
}

// IsActive returns true while the peer has not been stopped and its writer
// (if started) is still running.
func (s *Subscriber) IsActive() bool {
	select {
	case <-s.quit:
		return false
	case <-s.Done:
		return false
	default:
		return true
	}
}
