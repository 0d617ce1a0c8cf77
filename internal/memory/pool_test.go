package memory

import (
	"errors"
	"testing"

	"github.com/caxton-rt/caxton/internal/domain"
)

func mustMB(t *testing.T, mb uint64) domain.MemoryBytes {
	t.Helper()
	m, err := domain.MemoryBytesFromMB(mb)
	if err != nil {
		t.Fatalf("MemoryBytesFromMB(%d): %v", mb, err)
	}
	return m
}

func TestAllocateDeallocate(t *testing.T) {
	pool := NewBoundedPool(mustMB(t, 64), mustMB(t, 256))
	agent := domain.NewAgentID()

	if err := pool.Allocate(agent, mustMB(t, 32)); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if pool.Total() != 32<<20 {
		t.Fatalf("unexpected total: %d", pool.Total())
	}

	if err := pool.Allocate(agent, mustMB(t, 1)); !errors.Is(err, domain.ErrAgentAlreadyAllocated) {
		t.Fatalf("expected ErrAgentAlreadyAllocated, got %v", err)
	}

	freed, err := pool.Deallocate(agent)
	if err != nil {
		t.Fatalf("Deallocate: %v", err)
	}
	if freed != 32<<20 {
		t.Fatalf("unexpected freed bytes: %d", freed)
	}
	if pool.Total() != 0 {
		t.Fatalf("expected total 0 after deallocate, got %d", pool.Total())
	}
}

func TestDeallocateWithoutAllocateFails(t *testing.T) {
	pool := NewBoundedPool(mustMB(t, 64), mustMB(t, 256))
	if _, err := pool.Deallocate(domain.NewAgentID()); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestPerAgentCapExceeded(t *testing.T) {
	pool := NewBoundedPool(mustMB(t, 16), mustMB(t, 256))
	if err := pool.Allocate(domain.NewAgentID(), mustMB(t, 17)); !errors.Is(err, domain.ErrAgentMemoryExceeded) {
		t.Fatalf("expected ErrAgentMemoryExceeded, got %v", err)
	}
}

func TestGlobalCapExceeded(t *testing.T) {
	pool := NewBoundedPool(mustMB(t, 64), mustMB(t, 100))
	if err := pool.Allocate(domain.NewAgentID(), mustMB(t, 64)); err != nil {
		t.Fatalf("first Allocate: %v", err)
	}
	err := pool.Allocate(domain.NewAgentID(), mustMB(t, 40))
	var exceeded *domain.TotalLimitExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected TotalLimitExceededError, got %v", err)
	}
}

func TestSumNeverExceedsGlobalCap(t *testing.T) {
	pool := NewBoundedPool(mustMB(t, 10), mustMB(t, 25))
	ids := make([]domain.AgentID, 4)
	for i := range ids {
		ids[i] = domain.NewAgentID()
	}
	var admitted int
	for _, id := range ids {
		if err := pool.Allocate(id, mustMB(t, 10)); err == nil {
			admitted++
		}
	}
	if admitted != 2 {
		t.Fatalf("expected 2 admissions under a 25MB cap with 10MB requests, got %d", admitted)
	}
	if pool.Total() > pool.GlobalCap() {
		t.Fatalf("total %d exceeds global cap %d", pool.Total(), pool.GlobalCap())
	}
}
