// README: A single authenticated gateway connection and its outbound queue.
package gateway

import (
	"sync"

	"github.com/google/uuid"

	"ridewave/internal/types"
)

type Conn struct {
	handle   Handle
	identity Identity

	send      chan Envelope
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	location *types.Point
}

// NewConn creates a connection with an outbound queue of queueSize frames.
func NewConn(identity Identity, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Conn{
		handle:   Handle(uuid.NewString()),
		identity: identity,
		send:     make(chan Envelope, queueSize),
		done:     make(chan struct{}),
	}
}

func (c *Conn) Handle() Handle     { return c.handle }
func (c *Conn) Identity() Identity { return c.identity }

// Location returns the last location a customer declared, if any.
func (c *Conn) Location() (types.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.location == nil {
		return types.Point{}, false
	}
	return *c.location, true
}

func (c *Conn) SetLocation(p types.Point) {
	c.mu.Lock()
	c.location = &p
	c.mu.Unlock()
}

// Emit queues an event without blocking. It reports false when the
// connection is closed or its queue is full.
func (c *Conn) Emit(event string, payload any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- Envelope{Event: event, Data: payload}:
		return true
	default:
		return false
	}
}

// EmitError queues an "error" event carrying msg.
func (c *Conn) EmitError(msg string) bool {
	return c.Emit(EventError, ErrorPayload{Message: msg})
}

// Outbound is drained by the connection's writer.
func (c *Conn) Outbound() <-chan Envelope { return c.send }

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
