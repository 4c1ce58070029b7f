package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits for them, so the map only grows with in-flight keys.
type Locker struct {
	mutex sync.Mutex
	locks map[string]*entry
}

func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (l *Locker) Lock(key string) func() {
	l.mutex.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mutex.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mutex.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mutex.Unlock()
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.locks)
}
