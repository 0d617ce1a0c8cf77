package observe

import (
	"context"
	"testing"

	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/metrics"
	"github.com/caxton-rt/caxton/internal/sandbox"
)

func TestFuelExhaustedIncrementsMetric(t *testing.T) {
	m := metrics.New()
	r := New(m, nil)
	r.FuelExhausted(context.Background(), domain.NewAgentID(), 10, 2)
	if m.FuelExhaustions.Load() != 1 {
		t.Fatalf("expected FuelExhaustions to be 1, got %d", m.FuelExhaustions.Load())
	}
}

func TestConversationExpiredIncrementsMetric(t *testing.T) {
	m := metrics.New()
	r := New(m, nil)
	r.ConversationExpired(context.Background(), domain.NewConversationID(), 0)
	if m.ConversationsExpired.Load() != 1 {
		t.Fatalf("expected ConversationsExpired to be 1, got %d", m.ConversationsExpired.Load())
	}
}

func TestSandboxTransitionDoesNotPanic(t *testing.T) {
	m := metrics.New()
	r := New(m, nil)
	r.SandboxTransition(context.Background(), domain.NewAgentID(), sandbox.PhaseUninitialized, sandbox.PhaseInitialized)
}

func TestHealthSummaryDoesNotPanic(t *testing.T) {
	r := New(metrics.New(), nil)
	r.HealthSummary(context.Background(), metrics.Snapshot{MessagesRouted: 5})
}
