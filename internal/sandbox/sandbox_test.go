package sandbox

import (
	"errors"
	"testing"

	"github.com/caxton-rt/caxton/internal/domain"
)

func TestPhaseSequence(t *testing.T) {
	id := domain.NewAgentID()
	mem, err := domain.MemoryBytesFromMB(16)
	if err != nil {
		t.Fatalf("MemoryBytesFromMB: %v", err)
	}
	budget, err := domain.NewCPUFuel(100)
	if err != nil {
		t.Fatalf("NewCPUFuel: %v", err)
	}

	uninit := New(id)
	if uninit.MemoryUsage() != 0 {
		t.Fatalf("uninitialized memory usage should be 0")
	}

	init := uninit.Initialize(mem)
	if init.MemoryUsage() != mem.Bytes() {
		t.Fatalf("initialized memory usage mismatch")
	}

	running := init.Start(budget)
	if running.MemoryUsage() != mem.Bytes() {
		t.Fatalf("running memory usage mismatch")
	}
	remaining, err := running.ConsumeFuel(100)
	if err != nil {
		t.Fatalf("ConsumeFuel: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", remaining)
	}
	if _, err := running.ConsumeFuel(1); !errors.Is(err, domain.ErrFuelExhausted) {
		t.Fatalf("expected ErrFuelExhausted, got %v", err)
	}

	count, err := domain.NewMessageCount(2)
	if err != nil {
		t.Fatalf("NewMessageCount: %v", err)
	}
	draining := running.StartDraining(count)
	if draining.IsDrained() {
		t.Fatalf("should not be drained with 2 remaining")
	}
	draining, ok := draining.ProcessMessage()
	if !ok || draining.IsDrained() {
		t.Fatalf("unexpected drain state after first message")
	}
	draining, ok = draining.ProcessMessage()
	if !ok || !draining.IsDrained() {
		t.Fatalf("expected drained after second message")
	}
	_, ok = draining.ProcessMessage()
	if ok {
		t.Fatalf("ProcessMessage on drained sandbox should return false")
	}

	stopped := draining.Stop()
	if stopped.MemoryUsage() != 0 {
		t.Fatalf("stopped memory usage should be 0")
	}
}

func TestRunningStopsDirectly(t *testing.T) {
	id := domain.NewAgentID()
	mem, _ := domain.MemoryBytesFromMB(1)
	budget, _ := domain.NewCPUFuel(10)
	running := New(id).Initialize(mem).Start(budget)
	stopped := running.Stop()
	if stopped.ID != id {
		t.Fatalf("stopped id mismatch")
	}
}

func TestStateDispatch(t *testing.T) {
	id := domain.NewAgentID()
	mem, _ := domain.MemoryBytesFromMB(1)
	budget, _ := domain.NewCPUFuel(10)
	running := New(id).Initialize(mem).Start(budget)

	st := FromRunning(running)
	if !st.Deliverable() {
		t.Fatalf("running state should be deliverable")
	}
	if st.MemoryUsage() != mem.Bytes() {
		t.Fatalf("state memory usage mismatch")
	}

	count, _ := domain.NewMessageCount(1)
	drSt := FromDraining(running.StartDraining(count))
	if drSt.Deliverable() {
		t.Fatalf("draining state must not be deliverable")
	}
}
