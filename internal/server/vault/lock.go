package vault

import (
	"context"
	"fmt"
	"sync"
)

// userLocks is a set of context-aware mutexes keyed by username. Each lock
// is a one-slot channel; entries are reference counted and dropped once no
// goroutine holds or waits for them.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until the lock for key is held or ctx is done. On success the
// returned func releases the lock and must be called exactly once.
func (u *userLocks) Lock(ctx context.Context, key string) (func(), error) {
	u.mu.Lock()
	l, ok := u.locks[key]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		u.locks[key] = l
	}
	l.refs++
	u.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			u.release(key, l)
		}, nil
	case <-ctx.Done():
		u.release(key, l)
		return nil, fmt.Errorf("waiting for vault lock: %w", ctx.Err())
	}
}

func (u *userLocks) release(key string, l *userLock) {
	u.mu.Lock()
	defer u.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(u.locks, key)
	}
}

func (u *userLocks) size() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.locks)
}
