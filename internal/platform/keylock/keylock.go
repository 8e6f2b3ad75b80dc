// Package keylock provides a mutex keyed by an arbitrary comparable value.
//
// Holders of different keys never block each other. Entries are reference
// counted and dropped once the last waiter releases, so the table only grows
// with the number of keys currently in use.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	// sem is a one-slot semaphore; a channel lets Lock honour cancellation.
	sem  chan struct{}
	refs int
}

// Locker is a keyed mutex. The zero value is not usable; call New.
type Locker[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New returns an empty Locker.
func New[K comparable]() *Locker[K] {
	return &Locker[K]{entries: make(map[K]*entry)}
}

// Lock acquires the lock for key, blocking until it is free or ctx is done.
// On success the returned function releases the lock and must be called
// exactly once.
func (l *Locker[K]) Lock(ctx context.Context, key K) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}, nil
}

func (l *Locker[K]) release(key K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
