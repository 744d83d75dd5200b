package service

import (
	"sync"
)

// A Locker serializes all mutations touching a given item.
//
// The store has no multi-document transactions, so every reserve, cancel,
// expire and delete performs a read-check-write sequence on two records
// (item + reservation). Holding the item's lock across that sequence is what
// keeps the status/active-reservation invariant under concurrent callers.
type Locker struct {
	mu    sync.Mutex
	items map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker returns a new Locker.
func NewLocker() *Locker {
	return &Locker{
		items: make(map[string]*entry),
	}
}

// Lock acquires the lock of the given item id and returns its release function.
func (l *Locker) Lock(id string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.items[id]
	if !ok {
		e = &entry{}
		l.items[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.items, id)
		}
		l.mu.Unlock()
	}
}
