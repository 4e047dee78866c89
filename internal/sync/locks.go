package sync

import (
	"context"
	"sync"
)

// keyedLocks serializes work per key. Unlike a plain mutex map, entries are
// reference-counted and reclaimed once the last holder or waiter is gone,
// so the registry stays bounded no matter how many distinct users pass
// through.
type keyedLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{} // capacity 1
	refs int           // holders + waiters
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the key's lock is held or ctx is cancelled.
func (k *keyedLocks) Acquire(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.unref(key, e)
		return ctx.Err()
	}
}

// Release frees the key's lock. Must pair with a successful Acquire.
func (k *keyedLocks) Release(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}
	<-e.sem
	k.unref(key, e)
}

func (k *keyedLocks) unref(key string, e *lockEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs <= 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// size reports the number of live entries, for tests and diagnostics.
func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
