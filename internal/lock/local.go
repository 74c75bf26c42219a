// Package lock provides per-key mutual exclusion for wallet critical
// sections. Two implementations exist: Local serializes within one process,
// Leased additionally takes a lease record in the shared store so that
// multiple instances sharing one database cannot interleave.
package lock

import (
	"context"
	"sync"
)

// entry is one key's lock state. The channel has capacity 1: holding the
// token means holding the lock. refs counts holder plus waiters so idle
// keys can be reclaimed.
type entry struct {
	ch   chan struct{}
	refs int
}

// Local is the in-process KeyedMutex. Suitable for single-instance
// deployments; see Leased for the cross-instance variant.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewLocal creates an in-process keyed mutex.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

// RunExclusive runs fn while holding the key's lock. Callers for the same
// key wait in channel-acquisition order; callers for other keys are not
// blocked. A cancelled context aborts the wait without running fn.
func (l *Local) RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	e := l.retain(key)
	defer l.release(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.ch }()

	return fn(ctx)
}

// Keys returns the number of live (held or contended) keys.
func (l *Local) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Local) retain(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
