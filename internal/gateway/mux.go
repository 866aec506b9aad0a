// README: Mux routes inbound events to handlers, gated by role.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"ridewave/internal/modules/user"
)

// HandlerFunc handles one inbound event. Returned errors are reported to
// the sender as an "error" event.
type HandlerFunc func(ctx context.Context, c *Conn, data json.RawMessage) error

// CloseFunc runs once when a connection disconnects.
type CloseFunc func(ctx context.Context, c *Conn)

type route struct {
	fn    HandlerFunc
	roles map[user.Role]struct{}
}

type Mux struct {
	mu      sync.RWMutex
	routes  map[string]route
	onClose []CloseFunc
	log     zerolog.Logger
}

func NewMux(log zerolog.Logger) *Mux {
	return &Mux{
		routes: make(map[string]route),
		log:    log.With().Str("component", "mux").Logger(),
	}
}

// Handle registers fn for event. With no roles the event is open to every
// authenticated connection.
func (m *Mux) Handle(event string, fn HandlerFunc, roles ...user.Role) {
	r := route{fn: fn}
	if len(roles) > 0 {
		r.roles = make(map[user.Role]struct{}, len(roles))
		for _, role := range roles {
			r.roles[role] = struct{}{}
		}
	}
	m.mu.Lock()
	m.routes[event] = r
	m.mu.Unlock()
}

func (m *Mux) OnClose(fn CloseFunc) {
	m.mu.Lock()
	m.onClose = append(m.onClose, fn)
	m.mu.Unlock()
}

// Dispatch runs the handler for in. Failures are reported back to c and
// returned for logging.
func (m *Mux) Dispatch(ctx context.Context, c *Conn, in Inbound) (err error) {
	m.mu.RLock()
	r, ok := m.routes[in.Event]
	m.mu.RUnlock()
	if !ok {
		c.EmitError(fmt.Sprintf("Unknown event: %s", in.Event))
		return fmt.Errorf("%w: %q", ErrUnknownEvent, in.Event)
	}
	if r.roles != nil {
		if _, allowed := r.roles[c.identity.Role]; !allowed {
			c.EmitError(fmt.Sprintf("Event %s is not allowed for role %s", in.Event, c.identity.Role))
			return fmt.Errorf("%w: %q", ErrForbidden, in.Event)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error().Interface("panic", rec).Str("event", in.Event).Msg("ws_handler_panic")
			c.EmitError("Internal error")
			err = fmt.Errorf("handler %q panicked: %v", in.Event, rec)
		}
	}()

	if err := r.fn(ctx, c, in.Data); err != nil {
		c.EmitError(err.Error())
		return err
	}
	return nil
}

// Closed runs every close hook for c.
func (m *Mux) Closed(ctx context.Context, c *Conn) {
	m.mu.RLock()
	hooks := append([]CloseFunc(nil), m.onClose...)
	m.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx, c)
	}
}
