// Package sandbox implements the agent lifecycle as a sequence of
// concrete, phase-specific types rather than a single struct with a state
// flag. Each phase's type holds exactly the data legal for that phase;
// operations not legal in a phase simply do not exist as methods on that
// phase's type. This is the Go-idiomatic equivalent of a phantom-typed
// Sandbox<Phase>, since Go's generics cannot express per-instantiation
// method sets the way a parameterized-by-marker-type design does in a
// language with that feature.
//
// Transitions are plain functions that consume the old phase value and
// return the next phase's type (or an error); there is no way to reach an
// illegal phase because the compiler only accepts the types a given call
// site's function signature allows.
package sandbox

import (
	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/fuel"
)

// Uninitialized is the phase immediately after an agent id is minted. It
// carries no resource state.
type Uninitialized struct {
	ID domain.AgentID
}

// New creates a sandbox in the Uninitialized phase for id.
func New(id domain.AgentID) Uninitialized {
	return Uninitialized{ID: id}
}

func (u Uninitialized) MemoryUsage() uint64 { return 0 }

// Initialized holds the memory allocation admitted for this agent. No
// fuel tracker exists yet; fuel is attached only at Start.
type Initialized struct {
	ID             domain.AgentID
	MemoryAllocated domain.MemoryBytes
}

// Initialize transitions Uninitialized -> Initialized, recording the
// memory allocation the caller has already admitted (via
// internal/memory.BoundedPool.Allocate).
func (u Uninitialized) Initialize(mem domain.MemoryBytes) Initialized {
	return Initialized{ID: u.ID, MemoryAllocated: mem}
}

func (i Initialized) MemoryUsage() uint64 { return i.MemoryAllocated.Bytes() }

// Running holds the live fuel tracker for an executing agent.
type Running struct {
	ID              domain.AgentID
	MemoryAllocated domain.MemoryBytes
	Fuel            *fuel.Tracker
}

// Start transitions Initialized -> Running, attaching a fresh fuel
// tracker for budget.
func (i Initialized) Start(budget domain.CPUFuel) Running {
	return Running{
		ID:              i.ID,
		MemoryAllocated: i.MemoryAllocated,
		Fuel:            fuel.New(budget),
	}
}

func (r Running) MemoryUsage() uint64 { return r.MemoryAllocated.Bytes() }

// ConsumeFuel delegates to the embedded tracker. A failure here does not
// change the sandbox's phase; the caller (executor) decides whether to
// Stop or StartDraining in response.
func (r Running) ConsumeFuel(n uint64) (uint64, error) {
	return r.Fuel.Consume(n)
}

// StartDraining transitions Running -> Draining, recording how many
// in-flight messages must still be processed before the agent is fully
// drained.
func (r Running) StartDraining(remaining domain.MessageCount) Draining {
	return Draining{
		ID:              r.ID,
		MemoryAllocated: r.MemoryAllocated,
		Remaining:       remaining,
	}
}

// Stop transitions Running -> Stopped directly, without draining.
func (r Running) Stop() Stopped {
	return Stopped{ID: r.ID}
}

// Draining is the phase in which a sandbox finishes outstanding work
// before stopping. New messages are not accepted in this phase (see
// internal/delivery, which treats a Draining target as unavailable).
type Draining struct {
	ID              domain.AgentID
	MemoryAllocated domain.MemoryBytes
	Remaining       domain.MessageCount
}

func (d Draining) MemoryUsage() uint64 { return d.MemoryAllocated.Bytes() }

// ProcessMessage decrements the remaining-count, returning the updated
// Draining value and true, or the same value and false if already at
// zero.
func (d Draining) ProcessMessage() (Draining, bool) {
	next, ok := d.Remaining.Decrement()
	if !ok {
		return d, false
	}
	d.Remaining = next
	return d, true
}

// IsDrained reports whether no messages remain to process.
func (d Draining) IsDrained() bool { return d.Remaining.IsZero() }

// Stop transitions Draining -> Stopped regardless of remaining count.
func (d Draining) Stop() Stopped {
	return Stopped{ID: d.ID}
}

// Stopped is the terminal phase. Memory has been released by the caller
// (via BoundedPool.Deallocate) by the time this value is constructed.
type Stopped struct {
	ID domain.AgentID
}

func (s Stopped) MemoryUsage() uint64 { return 0 }
