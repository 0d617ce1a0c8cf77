// Package registry implements the concurrent agent directory: the
// agent-id -> record map, the capability -> agent-id-set index, and the
// route cache (local vs. remote) that the router consults on every send.
//
// Concurrency follows the teacher's own idiom for read-heavy, write-rare
// maps (sync.Map, as used throughout internal/pool and internal/metrics in
// the teacher repository) rather than a third-party concurrent-map
// library — no equivalent of Rust's dashmap was found anywhere in the
// retrieval pack's dependency surface, so sync.Map plus a small
// striped-mutex capability index is the grounded substitute.
package registry

import (
	"sync"
	"time"

	"github.com/caxton-rt/caxton/internal/domain"
)

// Location is either a local agent or a remote node, never both.
type Location struct {
	IsLocal bool
	Local   domain.LocalAgent
	NodeID  domain.NodeID
	Hops    int
}

// NodeInfo tracks a remote routing node's liveness.
type NodeInfo struct {
	ID            domain.NodeID
	Healthy       bool
	LastHeartbeat time.Time
	AgentCount    int
}

type capabilitySet struct {
	mu  sync.Mutex
	ids map[domain.AgentID]struct{}
}

// Registry is the concurrent directory of local agents, their
// capabilities, and the route cache to remote nodes.
type Registry struct {
	agents       sync.Map // domain.AgentID -> *domain.LocalAgent
	routes       sync.Map // domain.AgentID -> Location
	capabilities sync.Map // domain.CapabilityName -> *capabilitySet
	nodes        sync.Map // domain.NodeID -> NodeInfo
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Lookup returns the cached route for id, or domain.ErrAgentNotFound.
func (r *Registry) Lookup(id domain.AgentID) (Location, error) {
	v, ok := r.routes.Load(id)
	if !ok {
		return Location{}, domain.ErrAgentNotFound
	}
	return v.(Location), nil
}

// RegisterLocal inserts agent with its capability set, priming the route
// cache to a local route. It fails with domain.ErrAgentAlreadyRegistered
// if id is already present.
func (r *Registry) RegisterLocal(agent domain.LocalAgent) error {
	if _, loaded := r.agents.LoadOrStore(agent.ID, &agent); loaded {
		return domain.ErrAgentAlreadyRegistered
	}
	r.routes.Store(agent.ID, Location{IsLocal: true, Local: agent})
	for cap := range agent.Capabilities {
		r.addCapability(cap, agent.ID)
	}
	return nil
}

// DeregisterLocal removes agent, purges it from every capability set
// (deleting sets left empty), and removes its route entry. It returns
// domain.ErrAgentNotFound if absent.
func (r *Registry) DeregisterLocal(id domain.AgentID) error {
	v, loaded := r.agents.LoadAndDelete(id)
	if !loaded {
		return domain.ErrAgentNotFound
	}
	agent := *v.(*domain.LocalAgent)
	r.routes.Delete(id)
	for cap := range agent.Capabilities {
		r.removeCapability(cap, id)
	}
	return nil
}

// UpdateRemoteRoute caches a remote route for id and ensures the
// referenced node is tracked in the node registry.
func (r *Registry) UpdateRemoteRoute(id domain.AgentID, node domain.NodeID, hops int) {
	r.routes.Store(id, Location{IsLocal: false, NodeID: node, Hops: hops})
	now := time.Now()
	for {
		v, loaded := r.nodes.Load(node)
		if !loaded {
			r.nodes.Store(node, NodeInfo{ID: node, Healthy: true, LastHeartbeat: now, AgentCount: 1})
			return
		}
		info := v.(NodeInfo)
		updated := info
		updated.AgentCount++
		updated.LastHeartbeat = now
		if r.nodes.CompareAndSwap(node, v, updated) {
			return
		}
	}
}

// FindAgentsByCapability returns the current set of agent ids advertising
// cap. The returned slice may be empty but is never nil.
func (r *Registry) FindAgentsByCapability(cap domain.CapabilityName) []domain.AgentID {
	v, ok := r.capabilities.Load(cap)
	if !ok {
		return []domain.AgentID{}
	}
	cs := v.(*capabilitySet)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]domain.AgentID, 0, len(cs.ids))
	for id := range cs.ids {
		out = append(out, id)
	}
	return out
}

// UpdateAgentHealth updates id's heartbeat timestamp. It returns
// domain.ErrAgentNotFound if id is not a registered local agent.
//
// domain.LocalAgent embeds a Capabilities map and so is not comparable;
// sync.Map.CompareAndSwap compares the stored value with ==, which would
// panic on a non-comparable type. Agents are therefore stored as
// *domain.LocalAgent and the CAS loop swaps on pointer identity instead.
func (r *Registry) UpdateAgentHealth(id domain.AgentID, healthy bool, ts time.Time) error {
	for {
		v, loaded := r.agents.Load(id)
		if !loaded {
			return domain.ErrAgentNotFound
		}
		old := v.(*domain.LocalAgent)
		updated := *old
		updated.LastHeartbeat = ts
		if !healthy {
			updated.State = domain.AgentStateSuspended
		}
		if r.agents.CompareAndSwap(id, old, &updated) {
			return nil
		}
	}
}

// Get returns the current LocalAgent record for id.
func (r *Registry) Get(id domain.AgentID) (domain.LocalAgent, bool) {
	v, ok := r.agents.Load(id)
	if !ok {
		return domain.LocalAgent{}, false
	}
	return *v.(*domain.LocalAgent), true
}

// NodeHealth returns the tracked NodeInfo for node, if any.
func (r *Registry) NodeHealth(node domain.NodeID) (NodeInfo, bool) {
	v, ok := r.nodes.Load(node)
	if !ok {
		return NodeInfo{}, false
	}
	return v.(NodeInfo), true
}

func (r *Registry) addCapability(cap domain.CapabilityName, id domain.AgentID) {
	v, _ := r.capabilities.LoadOrStore(cap, &capabilitySet{ids: make(map[domain.AgentID]struct{})})
	cs := v.(*capabilitySet)
	cs.mu.Lock()
	cs.ids[id] = struct{}{}
	cs.mu.Unlock()
}

func (r *Registry) removeCapability(cap domain.CapabilityName, id domain.AgentID) {
	v, ok := r.capabilities.Load(cap)
	if !ok {
		return
	}
	cs := v.(*capabilitySet)
	cs.mu.Lock()
	delete(cs.ids, id)
	empty := len(cs.ids) == 0
	cs.mu.Unlock()
	if empty {
		r.capabilities.CompareAndDelete(cap, v)
	}
}

// Range calls fn for every currently registered local agent. fn returning
// false stops iteration early.
func (r *Registry) Range(fn func(domain.LocalAgent) bool) {
	r.agents.Range(func(_, v any) bool {
		return fn(*v.(*domain.LocalAgent))
	})
}
