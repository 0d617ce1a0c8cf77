// Package memory implements the bounded memory pool that admits sandbox
// allocations against both a per-agent cap and a global cap, turning
// resource exhaustion into a deterministic, pre-admission failure rather
// than a runtime abort.
package memory

import (
	"sync"

	"github.com/caxton-rt/caxton/internal/domain"
)

// BoundedPool tracks active per-agent memory allocations against a global
// ceiling. All mutation is serialized behind a single mutex; the critical
// section is O(1) and short enough to remain non-blocking in practice.
type BoundedPool struct {
	mu          sync.Mutex
	perAgentCap uint64
	globalCap   uint64
	allocated   map[domain.AgentID]uint64
	total       uint64
}

// NewBoundedPool constructs a pool with the given per-agent and global
// caps, both already-validated byte quantities.
func NewBoundedPool(perAgentCap, globalCap domain.MemoryBytes) *BoundedPool {
	return &BoundedPool{
		perAgentCap: perAgentCap.Bytes(),
		globalCap:   globalCap.Bytes(),
		allocated:   make(map[domain.AgentID]uint64),
	}
}

// Allocate admits a request of n bytes for agent. It fails with
// domain.ErrAgentAlreadyAllocated if agent already holds an allocation,
// with an error if n exceeds the per-agent cap, or with
// *domain.TotalLimitExceededError if admitting n would push the running
// total over the global cap.
func (p *BoundedPool) Allocate(agent domain.AgentID, n domain.MemoryBytes) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.allocated[agent]; exists {
		return domain.ErrAgentAlreadyAllocated
	}
	bytes := n.Bytes()
	if bytes > p.perAgentCap {
		return domain.ErrAgentMemoryExceeded
	}
	if p.total+bytes > p.globalCap {
		return &domain.TotalLimitExceededError{
			Requested: bytes,
			Current:   p.total,
			Limit:     p.globalCap,
		}
	}
	p.allocated[agent] = bytes
	p.total += bytes
	return nil
}

// Deallocate releases agent's allocation, returning the number of bytes
// that were freed. It returns domain.ErrAgentNotFound if agent holds no
// allocation. Subtraction saturates at zero to defend against bookkeeping
// drift between Allocate/Deallocate calls.
func (p *BoundedPool) Deallocate(agent domain.AgentID) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bytes, exists := p.allocated[agent]
	if !exists {
		return 0, domain.ErrAgentNotFound
	}
	delete(p.allocated, agent)
	if bytes > p.total {
		p.total = 0
	} else {
		p.total -= bytes
	}
	return bytes, nil
}

// Allocated returns the bytes currently held by agent and whether an
// allocation exists.
func (p *BoundedPool) Allocated(agent domain.AgentID) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bytes, exists := p.allocated[agent]
	return bytes, exists
}

// Total returns the sum of all active allocations.
func (p *BoundedPool) Total() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// GlobalCap returns the configured global ceiling.
func (p *BoundedPool) GlobalCap() uint64 { return p.globalCap }

// PerAgentCap returns the configured per-agent ceiling.
func (p *BoundedPool) PerAgentCap() uint64 { return p.perAgentCap }
