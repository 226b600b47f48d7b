package agents

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds all known agent units keyed by agent ID.
type Registry struct {
	mu    sync.RWMutex
	units map[string]*Unit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]*Unit)}
}

// Register adds a unit. Registering the same ID twice is a programming
// error and returns one.
func (r *Registry) Register(u *Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[u.ID()]; exists {
		return fmt.Errorf("agent %q already registered", u.ID())
	}
	r.units[u.ID()] = u
	return nil
}

// Get looks up a unit by ID.
func (r *Registry) Get(agentID string) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[agentID]
	return u, ok
}

// IDs returns all registered agent IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.units))
	for id := range r.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns all units in ID order.
func (r *Registry) All() []*Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.units))
	for id := range r.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	units := make([]*Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, r.units[id])
	}
	return units
}

// Enabled returns only the currently enabled units, in ID order.
func (r *Registry) Enabled() []*Unit {
	all := r.All()
	units := make([]*Unit, 0, len(all))
	for _, u := range all {
		if u.Enabled() {
			units = append(units, u)
		}
	}
	return units
}

// Statuses returns a snapshot of every unit in ID order.
func (r *Registry) Statuses() []Status {
	all := r.All()
	out := make([]Status, 0, len(all))
	for _, u := range all {
		out = append(out, u.Status())
	}
	return out
}
