// Package actionstate tracks transient per-resource busy flags. The
// registry is the admission gate that keeps at most one mutating action
// in flight per resource: handlers probe Busy before starting and flip
// their flag around the action body. Nothing here is persisted; the
// registry starts empty on every boot.
package actionstate

import "sync"

// Busyable is a fixed-shape flag record for one resource kind.
type Busyable interface {
	Busy() bool
}

// Registry maps resource id to its action flags. All methods are safe
// for concurrent use; Update is linearizable per id under the single
// registry lock.
type Registry[T Busyable] struct {
	mu      sync.Mutex
	entries map[string]T
}

// NewRegistry creates an empty registry.
func NewRegistry[T Busyable]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Busy reports whether any flag is set for the id. Absent ids are not busy.
func (r *Registry[T]) Busy(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return ok && entry.Busy()
}

// Get returns a snapshot of the entry, zero-valued if absent. T is a
// value type, so the caller holds a defensive copy.
func (r *Registry[T]) Get(id string) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

// Update atomically read-or-inserts the entry, applies mutate, and
// writes it back.
func (r *Registry[T]) Update(id string, mutate func(*T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.entries[id]
	mutate(&entry)
	r.entries[id] = entry
}
