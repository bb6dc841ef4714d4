package badger

import (
	"sync"

	"github.com/corpusworks/fusedex/core"
)

// sourceLocks serializes writers per document so concurrent upserts of
// the same source cannot interleave. Entries are reference counted and
// removed once the last holder releases them.
type sourceLocks struct {
	mu      sync.Mutex
	entries map[core.ID]*sourceLock
}

type sourceLock struct {
	mu   sync.Mutex
	refs int
}

func newSourceLocks() *sourceLocks {
	return &sourceLocks{entries: make(map[core.ID]*sourceLock)}
}

// lock blocks until the per-document mutex is held and returns the
// release function.
func (l *sourceLocks) lock(id core.ID) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &sourceLock{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
