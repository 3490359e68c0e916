package locks

import "sync"

// PositionLocks hands out one exclusive lease per position identifier. Every
// mutating operation holds the lease for its whole read-check-write sequence,
// including any suspension on the oracle or the ledger service, so two
// operations on the same position can never interleave. Operations on
// different positions proceed concurrently.
type PositionLocks struct {
	mu    sync.Mutex
	locks map[uint64]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *PositionLocks {
	return &PositionLocks{locks: make(map[uint64]*entry)}
}

// Lock acquires the lease for the position and returns its release func.
func (p *PositionLocks) Lock(id uint64) func() {
	p.mu.Lock()
	e, ok := p.locks[id]
	if !ok {
		e = &entry{}
		p.locks[id] = e
	}
	e.refs++
	p.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		p.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}
