// README: Hub tracks live connections and topic membership.
package gateway

import (
	"sync"

	"github.com/rs/zerolog"

	"ridewave/internal/metrics"
)

type Hub struct {
	mu     sync.RWMutex
	conns  map[Handle]*Conn
	topics map[string]map[Handle]*Conn

	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewHub(log zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		conns:   make(map[Handle]*Conn),
		topics:  make(map[string]map[Handle]*Conn),
		log:     log.With().Str("component", "hub").Logger(),
		metrics: m,
	}
}

func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.handle] = c
	h.mu.Unlock()
	h.metrics.ConnectionOpened()
	h.log.Debug().Str("handle", string(c.handle)).Str("user_id", string(c.identity.UserID)).Msg("ws_registered")
}

// Unregister removes c from the hub and from every topic, then closes it.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	_, ok := h.conns[c.handle]
	delete(h.conns, c.handle)
	for name, members := range h.topics {
		delete(members, c.handle)
		if len(members) == 0 {
			delete(h.topics, name)
		}
	}
	h.mu.Unlock()
	c.Close()
	if ok {
		h.metrics.ConnectionClosed()
		h.log.Debug().Str("handle", string(c.handle)).Msg("ws_removed")
	}
}

func (h *Hub) Lookup(handle Handle) (*Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[handle]
	return c, ok
}

// SendTo delivers to one connection. It reports false when the connection
// is gone or could not take the frame.
func (h *Hub) SendTo(handle Handle, event string, payload any) bool {
	c, ok := h.Lookup(handle)
	if !ok {
		return false
	}
	if !c.Emit(event, payload) {
		h.log.Warn().Str("handle", string(handle)).Str("event", event).Msg("ws_send_dropped")
		return false
	}
	return true
}

// Publish delivers to every member of topic and returns the handles that
// accepted the frame.
func (h *Hub) Publish(topic, event string, payload any) []Handle {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	delivered := make([]Handle, 0, len(members))
	for _, c := range members {
		if c.Emit(event, payload) {
			delivered = append(delivered, c.handle)
		} else {
			h.log.Warn().Str("handle", string(c.handle)).Str("topic", topic).Msg("ws_publish_dropped")
		}
	}
	return delivered
}

func (h *Hub) Join(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.handle]; !ok {
		return
	}
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[Handle]*Conn)
		h.topics[topic] = members
	}
	members[c.handle] = c
}

func (h *Hub) Leave(c *Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(members, c.handle)
	if len(members) == 0 {
		delete(h.topics, topic)
	}
}

// Members returns the handles currently joined to topic.
func (h *Hub) Members(topic string) []Handle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Handle, 0, len(h.topics[topic]))
	for handle := range h.topics[topic] {
		out = append(out, handle)
	}
	return out
}

// Connections returns a snapshot of every live connection.
func (h *Hub) Connections() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
