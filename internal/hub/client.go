// internal/hub/client.go
package hub

import (
	"errors"
	"sync"

	"github.com/erilali/messenger/internal/message"
	"github.com/gorilla/websocket"
)

var (
	errOutboxFull   = errors.New("outbox full")
	errClientClosed = errors.New("client closed")
)

// Client is one live connection. Conn is nil for connections created
// without a transport, as in tests.
type Client struct {
	ID        message.ConnectionID
	Conn      *websocket.Conn
	Principal string // username carried by the connection's credential, if any

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id message.ConnectionID, conn *websocket.Conn, principal string, outboxSize int) *Client {
	return &Client{
		ID:        id,
		Conn:      conn,
		Principal: principal,
		send:      make(chan []byte, outboxSize),
	}
}

// Outbox yields the frames queued for this connection. It is closed when the
// connection leaves the hub.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// enqueue never blocks.
func (c *Client) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errOutboxFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
