// Package lock provides a keyed mutex arena. Each key gets its own mutex so
// holders of distinct keys never contend; there is no lock spanning keys.
package lock

import "sync"

// Arena hands out per-key exclusive sections.
type Arena struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewArena constructs an empty arena.
func NewArena() *Arena {
	return &Arena{locks: make(map[string]*entry)}
}

// Lock acquires the exclusive section for key and returns its release func.
// Entries are reference counted and removed once the last holder releases,
// so the arena does not grow with the total number of keys ever seen.
func (a *Arena) Lock(key string) func() {
	a.mu.Lock()
	e, ok := a.locks[key]
	if !ok {
		e = &entry{}
		a.locks[key] = e
	}
	e.refs++
	a.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		a.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(a.locks, key)
		}
		a.mu.Unlock()
	}
}
