package fuel

import (
	"errors"
	"testing"

	"github.com/caxton-rt/caxton/internal/domain"
)

func mustFuel(t *testing.T, n uint64) domain.CPUFuel {
	t.Helper()
	f, err := domain.NewCPUFuel(n)
	if err != nil {
		t.Fatalf("NewCPUFuel(%d): %v", n, err)
	}
	return f
}

func TestConsumeMonotone(t *testing.T) {
	tr := New(mustFuel(t, 100))
	consumes := []uint64{10, 20, 5, 65}
	var prev uint64 = 100
	for _, n := range consumes {
		remaining, err := tr.Consume(n)
		if err != nil {
			t.Fatalf("Consume(%d): %v", n, err)
		}
		if remaining > prev {
			t.Fatalf("remaining increased: %d > %d", remaining, prev)
		}
		if tr.Consumed()+tr.Remaining() != tr.Budget() {
			t.Fatalf("consumed+remaining != budget")
		}
		prev = remaining
	}
	if tr.Remaining() != 0 {
		t.Fatalf("expected 0 remaining, got %d", tr.Remaining())
	}
}

func TestConsumeExactlyOne(t *testing.T) {
	tr := New(mustFuel(t, 1))
	remaining, err := tr.Consume(1)
	if err != nil {
		t.Fatalf("Consume(1): %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining)
	}
	if _, err := tr.Consume(1); !errors.Is(err, domain.ErrFuelExhausted) {
		t.Fatalf("expected ErrFuelExhausted, got %v", err)
	}
}

func TestInsufficientFuel(t *testing.T) {
	tr := New(mustFuel(t, 10))
	_, err := tr.Consume(11)
	var insufficient *domain.InsufficientFuelError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientFuelError, got %v", err)
	}
	if insufficient.Requested != 11 || insufficient.Available != 10 {
		t.Fatalf("unexpected error fields: %+v", insufficient)
	}
	// A failed consume must not change remaining.
	if tr.Remaining() != 10 {
		t.Fatalf("remaining changed after failed consume: %d", tr.Remaining())
	}
}

func TestFuelExhaustedAtZeroBudget(t *testing.T) {
	tr := New(mustFuel(t, 0))
	if _, err := tr.Consume(1); !errors.Is(err, domain.ErrFuelExhausted) {
		t.Fatalf("expected ErrFuelExhausted, got %v", err)
	}
}
