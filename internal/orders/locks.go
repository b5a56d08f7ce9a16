package orders

import (
	"sync"

	"github.com/google/uuid"
)

// orderLocks serializes mutations per order id within this process. The
// database transaction still guards cross-replica races; the in-process
// lock keeps concurrent submissions on one replica from interleaving
// between read and write.
type orderLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*orderLock
}

type orderLock struct {
	mu   sync.Mutex
	refs int
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: map[uuid.UUID]*orderLock{}}
}

// Acquire blocks until the caller holds the lock for the given order.
// The returned func releases it.
func (l *orderLocks) Acquire(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &orderLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
