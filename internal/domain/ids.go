// Package domain defines the validated primitive types shared by every
// other package in the runtime: identifiers, bounded quantities, and the
// message envelope. Construction is total — every exported constructor
// either returns a value that satisfies its invariants or an error;
// nothing downstream re-validates.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// AgentID identifies an agent uniquely for the lifetime of a run.
type AgentID struct{ id uuid.UUID }

// NewAgentID allocates a fresh, random agent identifier.
func NewAgentID() AgentID { return AgentID{id: uuid.New()} }

// systemAgentID is the reserved identifier for the runtime itself (the
// nil UUID).
var systemAgentID = AgentID{id: uuid.Nil}

// SystemAgentID returns the reserved "system" agent identifier.
func SystemAgentID() AgentID { return systemAgentID }

// IsSystem reports whether this id is the reserved system identifier.
func (a AgentID) IsSystem() bool { return a.id == uuid.Nil }

func (a AgentID) String() string { return a.id.String() }

// Equal reports value equality.
func (a AgentID) Equal(other AgentID) bool { return a.id == other.id }

// ParseAgentID parses a canonical UUID string into an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, fmt.Errorf("domain: invalid agent id %q: %w", s, err)
	}
	return AgentID{id: id}, nil
}

// NodeID identifies a remote routing node.
type NodeID struct{ id uuid.UUID }

func NewNodeID() NodeID { return NodeID{id: uuid.New()} }

func (n NodeID) String() string { return n.id.String() }

func (n NodeID) Equal(other NodeID) bool { return n.id == other.id }

func ParseNodeID(s string) (NodeID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("domain: invalid node id %q: %w", s, err)
	}
	return NodeID{id: id}, nil
}

// MessageID identifies a single envelope.
type MessageID struct{ id uuid.UUID }

func NewMessageID() MessageID { return MessageID{id: uuid.New()} }

func (m MessageID) String() string { return m.id.String() }

func (m MessageID) Equal(other MessageID) bool { return m.id == other.id }

// ParseMessageID parses a canonical UUID string into a MessageID, used by
// the remote transport to preserve a message's identity across the wire.
func ParseMessageID(s string) (MessageID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MessageID{}, fmt.Errorf("domain: invalid message id %q: %w", s, err)
	}
	return MessageID{id: id}, nil
}

// ConversationID identifies a thread of related messages.
type ConversationID struct{ id uuid.UUID }

func NewConversationID() ConversationID { return ConversationID{id: uuid.New()} }

func (c ConversationID) String() string { return c.id.String() }

func (c ConversationID) Equal(other ConversationID) bool { return c.id == other.id }

func ParseConversationID(s string) (ConversationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ConversationID{}, fmt.Errorf("domain: invalid conversation id %q: %w", s, err)
	}
	return ConversationID{id: id}, nil
}
