// README: Keyed mutexes with reference counting; an entry is dropped when its
// last holder releases, so the table stays bounded by in-flight keys.
package keylock

import (
	"sync"

	"dispatch/internal/types"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

type Table struct {
	mu      sync.Mutex
	entries map[types.ID]*entry
}

func New() *Table {
	return &Table{entries: make(map[types.ID]*entry)}
}

// Lock acquires the key's mutex and returns its release function. Waiters hold
// a reference, so an entry is never removed while a goroutine still owns or
// awaits it.
func (t *Table) Lock(id types.ID) func() {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &entry{}
		t.entries[id] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		t.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(t.entries, id)
		}
		t.mu.Unlock()
	}
}

// Len reports the number of keys currently held or awaited.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
