// Package lockpkg provides a registry of per-key mutual exclusion locks.
package lockpkg

import (
	"context"
	"sync"
)

// lock is one mutual exclusion handle. The semaphore channel has capacity
// one: a successful send holds the lock, receiving releases it. refs counts
// the holder plus all waiters so that a forgotten entry is only dropped from
// the registry once nobody can still be blocked on it.
type lock struct {
	sem  chan struct{}
	refs int
	gone bool
}

// Registry issues one lock per key, created lazily on first use.
// Get-or-create is atomic: concurrent callers asking for the same key
// always end up contending on the same handle.
//
// The zero value is not usable; call New.
type Registry struct {
	mu    sync.Mutex
	locks map[int32]*lock
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{locks: make(map[int32]*lock)}
}

// Lock blocks until the lock for id is held or ctx is done.
// It returns ctx.Err() when the wait was abandoned.
func (r *Registry) Lock(ctx context.Context, id int32) error {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &lock{sem: make(chan struct{}, 1)}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		r.release(id, l)
		return ctx.Err()
	}
}

// Unlock releases the lock for id. It panics if the lock is not held,
// matching the sync.Mutex convention for misuse.
func (r *Registry) Unlock(id int32) {
	r.mu.Lock()
	l, ok := r.locks[id]
	r.mu.Unlock()

	if !ok {
		panic("lockpkg: unlock of unknown key")
	}

	select {
	case <-l.sem:
	default:
		panic("lockpkg: unlock of unlocked key")
	}

	r.release(id, l)
}

// Forget marks the entry for id as removed. The caller must hold the lock,
// which guarantees no new holder sneaks in between the owning operation and
// the removal. The entry physically leaves the map only after the holder and
// every waiter have drained, so a caller already blocked in Lock still gets
// its turn on the same handle.
func (r *Registry) Forget(id int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.locks[id]; ok {
		l.gone = true
	}
}

// Len reports how many keys currently have a handle cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.locks)
}

// release drops one reference and removes the entry once it is forgotten
// and fully drained.
func (r *Registry) release(id int32, l *lock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l.refs--
	if l.gone && l.refs == 0 && r.locks[id] == l {
		delete(r.locks, id)
	}
}
