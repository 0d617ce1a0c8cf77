package domain

import (
	"fmt"
	"time"
)

// Performative is the act-type of a message in the agent-communication
// protocol.
type Performative string

const (
	PerformativeQueryIf        Performative = "query-if"
	PerformativeQueryRef       Performative = "query-ref"
	PerformativeInform         Performative = "inform"
	PerformativeNotUnderstood  Performative = "not-understood"
	PerformativeRefuse         Performative = "refuse"
	PerformativeFailure        Performative = "failure"
	PerformativeRequest        Performative = "request"
	PerformativeAgree          Performative = "agree"
	PerformativeCancel         Performative = "cancel"
	PerformativeCFP            Performative = "cfp"
	PerformativePropose        Performative = "propose"
	PerformativeAcceptProposal Performative = "accept-proposal"
	PerformativeRejectProposal Performative = "reject-proposal"
)

func (p Performative) Valid() bool {
	switch p {
	case PerformativeQueryIf, PerformativeQueryRef, PerformativeInform,
		PerformativeNotUnderstood, PerformativeRefuse, PerformativeFailure,
		PerformativeRequest, PerformativeAgree, PerformativeCancel,
		PerformativeCFP, PerformativePropose, PerformativeAcceptProposal,
		PerformativeRejectProposal:
		return true
	default:
		return false
	}
}

// IsReply reports whether p only ever occurs as a reply to a prior
// request/cfp in the protocol, and therefore must carry InReplyTo
// referencing that request's ReplyWith. query-if, query-ref, request, cfp,
// cancel, and inform all initiate a protocol step instead of closing one.
func (p Performative) IsReply() bool {
	switch p {
	case PerformativeAgree, PerformativeRefuse, PerformativeFailure,
		PerformativeNotUnderstood, PerformativePropose,
		PerformativeAcceptProposal, PerformativeRejectProposal:
		return true
	default:
		return false
	}
}

// Priority orders delivery urgency.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// DeliveryOptions configures per-message delivery behavior.
type DeliveryOptions struct {
	Priority    Priority
	MaxRetries  int
	Timeout     time.Duration
	RequireAck  bool
}

// DefaultDeliveryOptions returns the spec's conservative defaults.
func DefaultDeliveryOptions() DeliveryOptions {
	return DeliveryOptions{
		Priority:   PriorityNormal,
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// Message is the content-oriented envelope exchanged between agents.
type Message struct {
	ID             MessageID
	Sender         AgentID
	Receiver       AgentID
	Performative   Performative
	Content        []byte
	ConversationID *ConversationID
	ReplyWith      string
	InReplyTo      string
	Protocol       string
	Language       string
	Ontology       string
	ReplyBy        *time.Time
	CreatedAt      time.Time
	Options        DeliveryOptions
}

// NewMessageParams is the input to NewMessage; grouping the fields keeps
// the constructor's arity sane while still validating everything before a
// Message can exist.
type NewMessageParams struct {
	Sender         AgentID
	Receiver       AgentID
	Performative   Performative
	Content        []byte
	ConversationID *ConversationID
	ReplyWith      string
	InReplyTo      string
	Protocol       string
	Language       string
	Ontology       string
	ReplyBy        *time.Time
	Options        *DeliveryOptions
	Now            time.Time
}

// NewMessage validates and constructs a Message. It enforces: sender !=
// receiver, non-empty content, content <= MaxMessageSize, a known
// performative, and (for reply-type performatives) a present InReplyTo.
func NewMessage(p NewMessageParams) (Message, error) {
	if p.Sender.Equal(p.Receiver) {
		return Message{}, fmt.Errorf("%w: sender and receiver are both %s", ErrValidation, p.Sender)
	}
	if !p.Performative.Valid() {
		return Message{}, fmt.Errorf("%w: unknown performative %q", ErrValidation, p.Performative)
	}
	if p.Performative.IsReply() && p.InReplyTo == "" {
		return Message{}, fmt.Errorf("%w: performative %q requires InReplyTo", ErrValidation, p.Performative)
	}
	if _, err := NewMessageSize(len(p.Content)); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	opts := DefaultDeliveryOptions()
	if p.Options != nil {
		opts = *p.Options
	}
	if opts.MaxRetries < 0 {
		return Message{}, fmt.Errorf("%w: max retries must be >= 0", ErrValidation)
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Message{
		ID:             NewMessageID(),
		Sender:         p.Sender,
		Receiver:       p.Receiver,
		Performative:   p.Performative,
		Content:        p.Content,
		ConversationID: p.ConversationID,
		ReplyWith:      p.ReplyWith,
		InReplyTo:      p.InReplyTo,
		Protocol:       p.Protocol,
		Language:       p.Language,
		Ontology:       p.Ontology,
		ReplyBy:        p.ReplyBy,
		CreatedAt:      now,
		Options:        opts,
	}, nil
}
