// Package lock provides per-key mutual exclusion used to serialize every
// mutation of a single event's registrations and participant counter.
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock on key. The returned unlock function
// must be called exactly once. Lock blocks until the lock is held or ctx is
// done.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Local is an in-process Locker. Different keys never contend. It is only
// correct when a single replica serves the stores.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports the number of keys with a holder or waiter.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
