package engine

import "sync"

// phoneLocks serializes all work for one phone while letting distinct phones
// proceed concurrently. Locks are created on demand and never reclaimed; the
// contact population is bounded by the process lifetime.
type phoneLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPhoneLocks() *phoneLocks {
	return &phoneLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the phone's mutex and returns its release func.
func (p *phoneLocks) acquire(phone string) func() {
	p.mu.Lock()
	l, ok := p.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		p.locks[phone] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
