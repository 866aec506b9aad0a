// README: On-duty captain registry keyed by user id.
package presence

import (
	"sort"
	"sync"

	"ridewave/internal/gateway"
	"ridewave/internal/types"
)

// Captain is an on-duty captain as seen by dispatch and zone views.
type Captain struct {
	ID        types.ID       `json:"id"`
	Handle    gateway.Handle `json:"-"`
	Location  types.Point    `json:"coords"`
	PushToken string         `json:"firebasePushToken,omitempty"`
}

// Registry holds at most one record per captain id.
type Registry struct {
	mu       sync.RWMutex
	captains map[types.ID]Captain
}

func NewRegistry() *Registry {
	return &Registry{captains: make(map[types.ID]Captain)}
}

// SetOnDuty inserts or replaces the record for c.ID.
func (r *Registry) SetOnDuty(c Captain) {
	r.mu.Lock()
	r.captains[c.ID] = c
	r.mu.Unlock()
}

// SetOffDuty removes id. It reports whether a record existed.
func (r *Registry) SetOffDuty(id types.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.captains[id]
	delete(r.captains, id)
	return ok
}

// UpdateLocation moves an on-duty captain. Unknown ids are ignored.
func (r *Registry) UpdateLocation(id types.ID, p types.Point) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.captains[id]
	if !ok {
		return false
	}
	c.Location = p
	r.captains[id] = c
	return true
}

// RemoveConnection drops id only while its record still points at handle,
// so a late disconnect from an old socket leaves a reconnected captain alone.
func (r *Registry) RemoveConnection(id types.ID, handle gateway.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.captains[id]
	if !ok || c.Handle != handle {
		return false
	}
	delete(r.captains, id)
	return true
}

func (r *Registry) Get(id types.ID) (Captain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.captains[id]
	return c, ok
}

// All returns a snapshot ordered by id.
func (r *Registry) All() []Captain {
	r.mu.RLock()
	out := make([]Captain, 0, len(r.captains))
	for _, c := range r.captains {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.captains)
}
