package similarity

import (
	"sync"

	"github.com/google/uuid"
)

// ownerLocks hands out one mutex per owner so writes to the same record are serialized while
// writes to different records proceed in parallel. An entry lives while anyone holds or waits
// for it.
type ownerLocks struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until the owner's mutex is held and returns the function that releases it.
func (l *ownerLocks) lock(ownerID uuid.UUID) (unlock func()) {
	l.mu.Lock()

	if l.entries == nil {
		l.entries = make(map[uuid.UUID]*ownerLock)
	}

	entry, ok := l.entries[ownerID]
	if !ok {
		entry = &ownerLock{}
		l.entries[ownerID] = entry
	}

	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()

		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, ownerID)
		}
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
