// Package fuel implements the CPU-cost accounting attached to a running
// sandbox: a budget that is consumed monotonically and never replenished.
package fuel

import (
	"sync/atomic"

	"github.com/caxton-rt/caxton/internal/domain"
)

// Tracker enforces a strictly monotone, non-increasing fuel budget. The
// zero value is not valid; construct with New.
type Tracker struct {
	budget    uint64
	remaining atomic.Uint64
}

// New creates a Tracker with the given budget fully available.
func New(budget domain.CPUFuel) *Tracker {
	t := &Tracker{budget: budget.Value()}
	t.remaining.Store(budget.Value())
	return t
}

// Budget returns the tracker's original budget, which never changes.
func (t *Tracker) Budget() uint64 { return t.budget }

// Remaining returns the fuel currently available.
func (t *Tracker) Remaining() uint64 { return t.remaining.Load() }

// Consumed returns budget - remaining.
func (t *Tracker) Consumed() uint64 { return t.budget - t.remaining.Load() }

// Consume attempts to spend n fuel. It fails with domain.ErrFuelExhausted
// when no fuel remains, or *domain.InsufficientFuelError when some fuel
// remains but less than n. On success it returns the new remaining value.
// Consume is safe for concurrent use but a Tracker is owned by exactly one
// Running sandbox in practice (see internal/sandbox), so contention is not
// expected.
func (t *Tracker) Consume(n uint64) (uint64, error) {
	for {
		cur := t.remaining.Load()
		if cur == 0 {
			return 0, domain.ErrFuelExhausted
		}
		if n > cur {
			return cur, &domain.InsufficientFuelError{Requested: n, Available: cur}
		}
		next := cur - n
		if t.remaining.CompareAndSwap(cur, next) {
			return next, nil
		}
	}
}

// Exhausted reports whether no fuel remains.
func (t *Tracker) Exhausted() bool { return t.remaining.Load() == 0 }
