package peer

import (
	"sync"

	"github.com/DoyleJ11/stage-quiz-backend/pkg/types"
)

// Conn is the outbound side of one client connection. Any goroutine may Send;
// the transport drains Out and calls Close on disconnect. Out is never closed,
// so late sends from rooms or the hub cannot panic.
type Conn struct {
	ID     string
	out    chan types.ServerMessage
	closed chan struct{}
	once   sync.Once
}

func NewConn(id string, buffer int) *Conn {
	return &Conn{
		ID:     id,
		out:    make(chan types.ServerMessage, buffer),
		closed: make(chan struct{}),
	}
}

// Send enqueues msg without blocking. It reports false when the connection is
// closed or its buffer is full; the message is dropped in both cases.
func (c *Conn) Send(msg types.ServerMessage) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) Out() <-chan types.ServerMessage { return c.out }

func (c *Conn) Done() <-chan struct{} { return c.closed }

func (c *Conn) Close() {
	c.once.Do(func() { close(c.closed) })
}

// Peer binds a player or game master to a connection. RequestID is the
// correlation id the peer registered with; pushes are tagged with it.
type Peer struct {
	Name      string
	RequestID string
	Conn      *Conn
}

// Push sends msg tagged with the peer's own correlation id.
func (p Peer) Push(msg types.ServerMessage) bool {
	if p.Conn == nil {
		return false
	}
	msg.ResponseID = p.RequestID
	return p.Conn.Send(msg)
}
