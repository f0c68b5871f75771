package relay

import "sync"

// sessionLocks hands out one mutex per session id so concurrent
// exchanges against the same session cannot interleave their
// read-modify-write of the history. Entries live for the process
// lifetime; the map is bounded by the number of distinct sessions
// exchanged through this instance.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *sessionLocks) get(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.locks[id]; ok {
		return m
	}
	m := &sync.Mutex{}
	l.locks[id] = m
	return m
}
