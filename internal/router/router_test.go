package router

import (
	"context"
	"testing"
	"time"

	"github.com/caxton-rt/caxton/internal/conversation"
	"github.com/caxton-rt/caxton/internal/delivery"
	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/failure"
	"github.com/caxton-rt/caxton/internal/registry"
)

type alwaysDeliverable struct{}

func (alwaysDeliverable) Deliverable() bool { return true }

func newTestRouter(t *testing.T, mailboxCapacity int) (*Router, *registry.Registry, *delivery.Engine) {
	t.Helper()
	reg := registry.New()
	convs := conversation.New(10, time.Minute)
	deliv := delivery.New(mailboxCapacity)
	fh := failure.New(failure.Config{MaxRetries: 2, BaseBackoff: time.Millisecond, BackoffFactor: 2, MaxBackoff: 10 * time.Millisecond})
	r := New(Config{InboundQueueSize: 16, WorkerCount: 2}, reg, convs, deliv, fh, nil)
	r.Start()
	return r, reg, deliv
}

func registerAgent(t *testing.T, reg *registry.Registry, deliv *delivery.Engine, name string, mailboxCapacity int) domain.LocalAgent {
	t.Helper()
	n, err := domain.NewAgentName(name)
	if err != nil {
		t.Fatalf("NewAgentName: %v", err)
	}
	agent := domain.LocalAgent{ID: domain.NewAgentID(), Name: n, State: domain.AgentStateReady, Capabilities: map[domain.CapabilityName]struct{}{}}
	if err := reg.RegisterLocal(agent); err != nil {
		t.Fatalf("RegisterLocal: %v", err)
	}
	deliv.RegisterMailbox(agent.ID, alwaysDeliverable{})
	return agent
}

func TestLocalRoundTrip(t *testing.T) {
	r, reg, deliv := newTestRouter(t, 4)
	defer r.Shutdown(context.Background())

	a := registerAgent(t, reg, deliv, "A", 4)
	b := registerAgent(t, reg, deliv, "B", 4)
	convID := domain.NewConversationID()
	msg, err := domain.NewMessage(domain.NewMessageParams{
		Sender:         a.ID,
		Receiver:       b.ID,
		Performative:   domain.PerformativeInform,
		Content:        []byte("hello"),
		ConversationID: &convID,
	})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	if _, err := r.RouteMessage(msg); err != nil {
		t.Fatalf("RouteMessage: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		msgs, _ := r.Counters()
		if msgs >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("message was not routed in time")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestQueueFullBackpressure(t *testing.T) {
	reg := registry.New()
	convs := conversation.New(10, time.Minute)
	deliv := delivery.New(1)
	fh := failure.New(failure.Config{MaxRetries: 1, BaseBackoff: time.Millisecond, BackoffFactor: 2})
	r := New(Config{InboundQueueSize: 1, WorkerCount: 1}, reg, convs, deliv, fh, nil)
	// Intentionally do not Start(): with no workers draining the queue,
	// the second enqueue must observe QueueFull deterministically.

	a := domain.NewAgentID()
	b := domain.NewAgentID()
	msg1, _ := domain.NewMessage(domain.NewMessageParams{Sender: a, Receiver: b, Performative: domain.PerformativeInform, Content: []byte("x")})
	msg2, _ := domain.NewMessage(domain.NewMessageParams{Sender: a, Receiver: b, Performative: domain.PerformativeInform, Content: []byte("y")})

	if _, err := r.RouteMessage(msg1); err != nil {
		t.Fatalf("first RouteMessage: %v", err)
	}
	if _, err := r.RouteMessage(msg2); err == nil {
		t.Fatalf("expected QueueFull on second enqueue with an undrained queue")
	}
}

func TestShutdownDeadLettersRemaining(t *testing.T) {
	reg := registry.New()
	convs := conversation.New(10, time.Minute)
	deliv := delivery.New(1)
	fh := failure.New(failure.Config{MaxRetries: 1, BaseBackoff: time.Millisecond, BackoffFactor: 2})
	r := New(Config{InboundQueueSize: 2, WorkerCount: 0}, reg, convs, deliv, fh, nil)

	a := domain.NewAgentID()
	b := domain.NewAgentID()
	msg, _ := domain.NewMessage(domain.NewMessageParams{Sender: a, Receiver: b, Performative: domain.PerformativeInform, Content: []byte("x")})
	r.inbound <- task{msg: msg}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r.Shutdown(ctx)

	stats := fh.Stats(time.Now())
	if stats.Total != 1 {
		t.Fatalf("expected 1 dead letter from shutdown drain, got %d", stats.Total)
	}
}
