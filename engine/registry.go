package engine

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateKey is returned by Add when the key is already tracked.
	ErrDuplicateKey = errors.New("engine: duplicate key")
	// ErrNilEntry is returned by Add when no entry is given.
	ErrNilEntry = errors.New("engine: nil entry")
)

// Registry is the keyed set of tracked entries. Listing order is insertion
// order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Add stores entry under key and starts its status checks.
func (r *Registry) Add(key string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: %q", ErrNilEntry, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	r.entries[key] = entry
	r.order = append(r.order, key)
	entry.StartStatusChecks()
	return nil
}

// Delete stops the status checks of each present key, then removes it.
// Absent keys are ignored.
func (r *Registry) Delete(keys ...string) []*Entry {
	if len(keys) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make([]*Entry, 0, len(keys))
	drop := make(map[string]bool, len(keys))
	for _, key := range keys {
		entry, ok := r.entries[key]
		if !ok {
			continue
		}
		entry.StopStatusChecks()
		delete(r.entries, key)
		drop[key] = true
		removed = append(removed, entry)
	}
	if len(drop) > 0 {
		kept := r.order[:0]
		for _, key := range r.order {
			if !drop[key] {
				kept = append(kept, key)
			}
		}
		r.order = kept
	}
	return removed
}

// DeleteAll removes every entry.
func (r *Registry) DeleteAll() []*Entry {
	return r.Delete(r.Keys()...)
}

// Difference returns the registry keys absent from keys, in insertion order.
func (r *Registry) Difference(keys []string) []string {
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, key := range r.order {
		if _, ok := present[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}

// Has reports whether key is tracked.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Get returns the entry stored under key.
func (r *Registry) Get(key string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

// All returns every entry in insertion order.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.entries[key])
	}
	return out
}

// Keys returns every key in insertion order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
