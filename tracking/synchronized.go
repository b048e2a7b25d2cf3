package tracking

import "sync"

// Synchronized guards a Tracker so that it can be inspected from other
// goroutines while operations are running. Hooks run while the lock is held
// and must not call back into the Synchronized.
type Synchronized struct {
	lock    sync.RWMutex
	tracker *Tracker
}

// NewSynchronized wraps a Tracker.
func NewSynchronized(t *Tracker) *Synchronized {
	return &Synchronized{tracker: t}
}

// Begin begins an operation on the wrapped Tracker.
func (s *Synchronized) Begin(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tracker.Begin(id)
}

// End ends an operation on the wrapped Tracker.
func (s *Synchronized) End(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.tracker.End(id)
}

// Read runs f with shared access to the wrapped Tracker. Nodes obtained in f
// must not be used after f returns.
func (s *Synchronized) Read(f func(t *Tracker)) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	f(s.tracker)
}

var _ Scope = (*Synchronized)(nil)
