package bidding

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// keyedLock serializes the read-validate-write sequence per auction. Locks on
// different auctions never contend. Entries are reference counted so the map
// does not grow with the number of auctions ever bid on.
type keyedLock struct {
	mu   sync.Mutex
	keys map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	slot chan struct{} // capacity 1 semaphore
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{keys: make(map[uuid.UUID]*lockEntry)}
}

// Acquire takes the lock for key, waiting at most wait. On success it returns
// a release func; on timeout or context cancellation it returns ErrBusy.
func (l *keyedLock) Acquire(ctx context.Context, key uuid.UUID, wait time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.keys[key]
	if !ok {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		l.keys[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case entry.slot <- struct{}{}:
		return func() {
			<-entry.slot
			l.put(key, entry)
		}, nil
	case <-timer.C:
		l.put(key, entry)
		return nil, ErrBusy
	case <-ctx.Done():
		l.put(key, entry)
		return nil, ErrBusy
	}
}

func (l *keyedLock) put(key uuid.UUID, entry *lockEntry) {
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}
