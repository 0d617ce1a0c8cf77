package rpc

import (
	"time"

	"github.com/caxton-rt/caxton/internal/domain"
)

// envelope is the wire representation of a domain.Message, JSON-tagged
// for the codec in codec.go. Fields mirror domain.Message field-for-field
// rather than embedding it, since domain.Message's validated fields
// (AgentID, MessageID, ...) don't round-trip through encoding/json on
// their own without exposing their internal uuid.UUID. Of Options only
// Priority and MaxRetries are carried; Timeout and RequireAck are not,
// and fromEnvelope takes them from DefaultDeliveryOptions.
type envelope struct {
	ID             string     `json:"id"`
	Sender         string     `json:"sender"`
	Receiver       string     `json:"receiver"`
	Performative   string     `json:"performative"`
	Content        []byte     `json:"content"`
	ConversationID string     `json:"conversation_id,omitempty"`
	ReplyWith      string     `json:"reply_with,omitempty"`
	InReplyTo      string     `json:"in_reply_to,omitempty"`
	Protocol       string     `json:"protocol,omitempty"`
	Language       string     `json:"language,omitempty"`
	Ontology       string     `json:"ontology,omitempty"`
	ReplyBy        *time.Time `json:"reply_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Priority       int        `json:"priority"`
	MaxRetries     int        `json:"max_retries"`
}

func toEnvelope(msg domain.Message) envelope {
	e := envelope{
		ID:           msg.ID.String(),
		Sender:       msg.Sender.String(),
		Receiver:     msg.Receiver.String(),
		Performative: string(msg.Performative),
		Content:      msg.Content,
		ReplyWith:    msg.ReplyWith,
		InReplyTo:    msg.InReplyTo,
		Protocol:     msg.Protocol,
		Language:     msg.Language,
		Ontology:     msg.Ontology,
		ReplyBy:      msg.ReplyBy,
		CreatedAt:    msg.CreatedAt,
		Priority:     int(msg.Options.Priority),
		MaxRetries:   msg.Options.MaxRetries,
	}
	if msg.ConversationID != nil {
		e.ConversationID = msg.ConversationID.String()
	}
	return e
}

func fromEnvelope(e envelope) (domain.Message, error) {
	sender, err := domain.ParseAgentID(e.Sender)
	if err != nil {
		return domain.Message{}, err
	}
	receiver, err := domain.ParseAgentID(e.Receiver)
	if err != nil {
		return domain.Message{}, err
	}
	var convID *domain.ConversationID
	if e.ConversationID != "" {
		id, err := domain.ParseConversationID(e.ConversationID)
		if err != nil {
			return domain.Message{}, err
		}
		convID = &id
	}
	opts := domain.DefaultDeliveryOptions()
	opts.Priority = domain.Priority(e.Priority)
	opts.MaxRetries = e.MaxRetries
	msg, err := domain.NewMessage(domain.NewMessageParams{
		Sender:         sender,
		Receiver:       receiver,
		Performative:   domain.Performative(e.Performative),
		Content:        e.Content,
		ConversationID: convID,
		ReplyWith:      e.ReplyWith,
		InReplyTo:      e.InReplyTo,
		Protocol:       e.Protocol,
		Language:       e.Language,
		Ontology:       e.Ontology,
		ReplyBy:        e.ReplyBy,
		Options:        &opts,
		Now:            e.CreatedAt,
	})
	if err != nil {
		return domain.Message{}, err
	}
	if e.ID != "" {
		id, err := domain.ParseMessageID(e.ID)
		if err != nil {
			return domain.Message{}, err
		}
		msg.ID = id
	}
	return msg, nil
}

type deliverRequest struct {
	Envelope envelope `json:"envelope"`
}

type deliverResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}
