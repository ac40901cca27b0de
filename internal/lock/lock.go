package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a key stays held past the wait budget.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker serializes work per key. The returned unlock func must be called
// exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process Locker used when Redis is disabled.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[string]*localEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, entry, true) })
	}, nil
}

func (l *LocalLocker) release(key string, entry *localEntry, held bool) {
	if held {
		<-entry.ch
	}
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}
