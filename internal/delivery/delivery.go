// Package delivery implements the non-blocking send primitives that move
// an envelope onto a target's mailbox (local) or a remote node's outbound
// channel. Every send is a try-send: back-pressure is signaled, never
// absorbed by blocking the caller.
package delivery

import (
	"fmt"
	"sync"

	"github.com/caxton-rt/caxton/internal/domain"
)

// DeliveryFailureKind classifies why a try-send did not succeed.
type DeliveryFailureKind string

const (
	FailureUnavailable DeliveryFailureKind = "unavailable"
	FailureQueueFull   DeliveryFailureKind = "queue_full"
	FailureQueueClosed DeliveryFailureKind = "queue_closed"
)

// LocalDeliveryError reports a failed deliver_local.
type LocalDeliveryError struct{ Kind DeliveryFailureKind }

func (e *LocalDeliveryError) Error() string {
	return fmt.Sprintf("local delivery failed: %s", e.Kind)
}

// RemoteDeliveryError reports a failed deliver_remote.
type RemoteDeliveryError struct {
	NodeID domain.NodeID
	Kind   DeliveryFailureKind
}

func (e *RemoteDeliveryError) Error() string {
	return fmt.Sprintf("remote delivery to %s failed: %s", e.NodeID, e.Kind)
}

// Health is the result of a health check.
type Health struct {
	Status string // "healthy", "degraded", or "unhealthy"
	Reason string
}

// Deliverable reports whether a target is currently able to accept a
// message, satisfied by internal/sandbox.State and by a test double.
type Deliverable interface {
	Deliverable() bool
}

type mailbox struct {
	ch        chan domain.Message
	closed    bool
	mu        sync.Mutex
	available Deliverable
}

// Engine owns the per-agent mailboxes and per-node outbound channels, and
// performs non-blocking delivery onto them.
type Engine struct {
	mu        sync.RWMutex
	mailboxes map[domain.AgentID]*mailbox
	outbound  map[domain.NodeID]*mailbox
	capacity  int
}

// New constructs an Engine whose mailboxes/outbound channels are created
// with the given buffer capacity.
func New(capacity int) *Engine {
	return &Engine{
		mailboxes: make(map[domain.AgentID]*mailbox),
		outbound:  make(map[domain.NodeID]*mailbox),
		capacity:  capacity,
	}
}

// RegisterMailbox creates (or replaces) the bounded mailbox for agent,
// gated by a Deliverable that reports the agent's current sandbox state.
func (e *Engine) RegisterMailbox(agent domain.AgentID, available Deliverable) <-chan domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	mb := &mailbox{ch: make(chan domain.Message, e.capacity), available: available}
	e.mailboxes[agent] = mb
	return mb.ch
}

// CloseMailbox marks agent's mailbox closed. The closed mailbox stays
// registered, so further deliver_local calls for agent report
// FailureQueueClosed until RegisterMailbox replaces it.
func (e *Engine) CloseMailbox(agent domain.AgentID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mb, ok := e.mailboxes[agent]; ok {
		mb.mu.Lock()
		mb.closed = true
		mb.mu.Unlock()
	}
}

// RegisterOutbound creates the bounded outbound channel for node.
func (e *Engine) RegisterOutbound(node domain.NodeID) <-chan domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	mb := &mailbox{ch: make(chan domain.Message, e.capacity)}
	e.outbound[node] = mb
	return mb.ch
}

// DeliverLocal attempts a non-blocking send onto target's mailbox. If no
// mailbox is registered for target, the message is treated as "pending
// registration": the call succeeds and the caller is expected to observe
// the gap through metrics (per the runtime's delivery contract), not
// through an error.
func (e *Engine) DeliverLocal(msg domain.Message, target domain.AgentID) (domain.MessageID, error) {
	e.mu.RLock()
	mb, ok := e.mailboxes[target]
	e.mu.RUnlock()
	if !ok {
		return msg.ID, nil
	}
	mb.mu.Lock()
	closed := mb.closed
	available := mb.available
	mb.mu.Unlock()
	if closed {
		return domain.MessageID{}, &LocalDeliveryError{Kind: FailureQueueClosed}
	}
	if available != nil && !available.Deliverable() {
		return domain.MessageID{}, &LocalDeliveryError{Kind: FailureUnavailable}
	}
	select {
	case mb.ch <- msg:
		return msg.ID, nil
	default:
		return domain.MessageID{}, &LocalDeliveryError{Kind: FailureQueueFull}
	}
}

// DeliverRemote attempts a non-blocking send onto node's outbound
// channel.
func (e *Engine) DeliverRemote(msg domain.Message, node domain.NodeID) (domain.MessageID, error) {
	e.mu.RLock()
	mb, ok := e.outbound[node]
	e.mu.RUnlock()
	if !ok {
		return domain.MessageID{}, &RemoteDeliveryError{NodeID: node, Kind: FailureUnavailable}
	}
	mb.mu.Lock()
	closed := mb.closed
	mb.mu.Unlock()
	if closed {
		return domain.MessageID{}, &RemoteDeliveryError{NodeID: node, Kind: FailureQueueClosed}
	}
	select {
	case mb.ch <- msg:
		return msg.ID, nil
	default:
		return domain.MessageID{}, &RemoteDeliveryError{NodeID: node, Kind: FailureQueueFull}
	}
}

// BatchResult pairs a message with its delivery outcome.
type BatchResult struct {
	MessageID domain.MessageID
	Err       error
}

// DeliverBatch delivers each message to its resolved target in order,
// preserving input order in the returned results.
func (e *Engine) DeliverBatch(items []struct {
	Message domain.Message
	Local   *domain.AgentID
	Remote  *domain.NodeID
}) []BatchResult {
	results := make([]BatchResult, len(items))
	for i, item := range items {
		switch {
		case item.Local != nil:
			id, err := e.DeliverLocal(item.Message, *item.Local)
			results[i] = BatchResult{MessageID: id, Err: err}
		case item.Remote != nil:
			id, err := e.DeliverRemote(item.Message, *item.Remote)
			results[i] = BatchResult{MessageID: id, Err: err}
		default:
			results[i] = BatchResult{Err: &LocalDeliveryError{Kind: FailureUnavailable}}
		}
	}
	return results
}

// HealthCheck reports aggregate mailbox pressure: Unhealthy if any
// mailbox is full, Degraded if any mailbox is above 80% capacity,
// otherwise Healthy.
func (e *Engine) HealthCheck() Health {
	e.mu.RLock()
	defer e.mu.RUnlock()
	degraded := false
	for id, mb := range e.mailboxes {
		length := len(mb.ch)
		if e.capacity > 0 && length >= e.capacity {
			return Health{Status: "unhealthy", Reason: fmt.Sprintf("mailbox for %s is full", id)}
		}
		if e.capacity > 0 && float64(length)/float64(e.capacity) >= 0.8 {
			degraded = true
		}
	}
	if degraded {
		return Health{Status: "degraded", Reason: "one or more mailboxes above 80% capacity"}
	}
	return Health{Status: "healthy"}
}
