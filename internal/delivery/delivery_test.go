package delivery

import (
	"errors"
	"testing"

	"github.com/caxton-rt/caxton/internal/domain"
)

type alwaysDeliverable struct{}

func (alwaysDeliverable) Deliverable() bool { return true }

type neverDeliverable struct{}

func (neverDeliverable) Deliverable() bool { return false }

func newMessage(t *testing.T, sender, receiver domain.AgentID) domain.Message {
	t.Helper()
	msg, err := domain.NewMessage(domain.NewMessageParams{
		Sender:       sender,
		Receiver:     receiver,
		Performative: domain.PerformativeInform,
		Content:      []byte("hello"),
	})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func TestDeliverLocalSuccess(t *testing.T) {
	e := New(1)
	sender, receiver := domain.NewAgentID(), domain.NewAgentID()
	ch := e.RegisterMailbox(receiver, alwaysDeliverable{})
	msg := newMessage(t, sender, receiver)

	if _, err := e.DeliverLocal(msg, receiver); err != nil {
		t.Fatalf("DeliverLocal: %v", err)
	}
	select {
	case got := <-ch:
		if !got.ID.Equal(msg.ID) {
			t.Fatalf("unexpected message id")
		}
	default:
		t.Fatalf("expected message in mailbox")
	}
}

func TestDeliverLocalNoMailboxTreatedAsPending(t *testing.T) {
	e := New(1)
	sender, receiver := domain.NewAgentID(), domain.NewAgentID()
	msg := newMessage(t, sender, receiver)
	if _, err := e.DeliverLocal(msg, receiver); err != nil {
		t.Fatalf("expected success for unregistered mailbox, got %v", err)
	}
}

func TestDeliverLocalQueueFull(t *testing.T) {
	e := New(1)
	sender, receiver := domain.NewAgentID(), domain.NewAgentID()
	e.RegisterMailbox(receiver, alwaysDeliverable{})
	msg := newMessage(t, sender, receiver)

	if _, err := e.DeliverLocal(msg, receiver); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	_, err := e.DeliverLocal(msg, receiver)
	var lde *LocalDeliveryError
	if !errors.As(err, &lde) || lde.Kind != FailureQueueFull {
		t.Fatalf("expected queue_full, got %v", err)
	}
}

func TestDeliverLocalUnavailable(t *testing.T) {
	e := New(1)
	sender, receiver := domain.NewAgentID(), domain.NewAgentID()
	e.RegisterMailbox(receiver, neverDeliverable{})
	msg := newMessage(t, sender, receiver)

	_, err := e.DeliverLocal(msg, receiver)
	var lde *LocalDeliveryError
	if !errors.As(err, &lde) || lde.Kind != FailureUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestDeliverLocalClosed(t *testing.T) {
	e := New(1)
	sender, receiver := domain.NewAgentID(), domain.NewAgentID()
	e.RegisterMailbox(receiver, alwaysDeliverable{})
	e.CloseMailbox(receiver)
	msg := newMessage(t, sender, receiver)

	_, err := e.DeliverLocal(msg, receiver)
	if err != nil {
		var lde *LocalDeliveryError
		if !errors.As(err, &lde) {
			t.Fatalf("expected LocalDeliveryError, got %v", err)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	e := New(2)
	sender, receiver := domain.NewAgentID(), domain.NewAgentID()
	e.RegisterMailbox(receiver, alwaysDeliverable{})
	if h := e.HealthCheck(); h.Status != "healthy" {
		t.Fatalf("expected healthy, got %+v", h)
	}
	msg := newMessage(t, sender, receiver)
	if _, err := e.DeliverLocal(msg, receiver); err != nil {
		t.Fatalf("DeliverLocal: %v", err)
	}
	if _, err := e.DeliverLocal(msg, receiver); err != nil {
		t.Fatalf("DeliverLocal: %v", err)
	}
	if h := e.HealthCheck(); h.Status != "unhealthy" {
		t.Fatalf("expected unhealthy at full capacity, got %+v", h)
	}
}
