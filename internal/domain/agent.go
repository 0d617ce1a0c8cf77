package domain

import "time"

// AgentState is the registry-visible lifecycle state of a LocalAgent.
// Distinct from the sandbox phase machine in internal/sandbox: this is the
// coarse state the registry and capability index expose to callers.
type AgentState string

const (
	AgentStateInitializing AgentState = "initializing"
	AgentStateReady        AgentState = "ready"
	AgentStateRunning      AgentState = "running"
	AgentStateSuspended    AgentState = "suspended"
	AgentStateTerminating  AgentState = "terminating"
	AgentStateTerminated   AgentState = "terminated"
)

// LocalAgent is the registry's record for an agent hosted on this node.
type LocalAgent struct {
	ID              AgentID
	Name            AgentName
	State           AgentState
	Capabilities    map[CapabilityName]struct{}
	LastHeartbeat   time.Time
	MailboxCapacity int
}

// HasCapability reports whether the agent advertises cap.
func (a LocalAgent) HasCapability(cap CapabilityName) bool {
	_, ok := a.Capabilities[cap]
	return ok
}

// Deliverable reports whether the agent is presently in a state that can
// accept a new message (used by the delivery engine's "unavailable" check).
func (a LocalAgent) Deliverable() bool {
	switch a.State {
	case AgentStateReady, AgentStateRunning:
		return true
	default:
		return false
	}
}
