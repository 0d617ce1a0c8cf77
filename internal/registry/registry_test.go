package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/caxton-rt/caxton/internal/domain"
)

func newLocalAgent(t *testing.T, name string, caps ...string) domain.LocalAgent {
	t.Helper()
	n, err := domain.NewAgentName(name)
	if err != nil {
		t.Fatalf("NewAgentName: %v", err)
	}
	capSet := make(map[domain.CapabilityName]struct{}, len(caps))
	for _, c := range caps {
		cn, err := domain.NewCapabilityName(c)
		if err != nil {
			t.Fatalf("NewCapabilityName: %v", err)
		}
		capSet[cn] = struct{}{}
	}
	return domain.LocalAgent{
		ID:           domain.NewAgentID(),
		Name:         n,
		State:        domain.AgentStateReady,
		Capabilities: capSet,
	}
}

func TestRegisterLookupDeregister(t *testing.T) {
	reg := New()
	a := newLocalAgent(t, "alpha", "compute")

	if err := reg.RegisterLocal(a); err != nil {
		t.Fatalf("RegisterLocal: %v", err)
	}
	if err := reg.RegisterLocal(a); !errors.Is(err, domain.ErrAgentAlreadyRegistered) {
		t.Fatalf("expected ErrAgentAlreadyRegistered, got %v", err)
	}

	loc, err := reg.Lookup(a.ID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !loc.IsLocal || !loc.Local.ID.Equal(a.ID) {
		t.Fatalf("unexpected location: %+v", loc)
	}

	if err := reg.DeregisterLocal(a.ID); err != nil {
		t.Fatalf("DeregisterLocal: %v", err)
	}
	if _, err := reg.Lookup(a.ID); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound after deregister, got %v", err)
	}
	compute, _ := domain.NewCapabilityName("compute")
	for _, id := range reg.FindAgentsByCapability(compute) {
		if id.Equal(a.ID) {
			t.Fatalf("deregistered agent still present in capability index")
		}
	}
}

func TestCapabilityDiscovery(t *testing.T) {
	reg := New()
	a := newLocalAgent(t, "a", "x")
	b := newLocalAgent(t, "b", "x", "y")
	c := newLocalAgent(t, "c", "y")
	for _, agent := range []domain.LocalAgent{a, b, c} {
		if err := reg.RegisterLocal(agent); err != nil {
			t.Fatalf("RegisterLocal: %v", err)
		}
	}
	x, _ := domain.NewCapabilityName("x")
	y, _ := domain.NewCapabilityName("y")

	assertSet := func(got []domain.AgentID, want ...domain.AgentID) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("expected %d ids, got %d (%v)", len(want), len(got), got)
		}
		for _, w := range want {
			found := false
			for _, g := range got {
				if g.Equal(w) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v in result set %v", w, got)
			}
		}
	}

	assertSet(reg.FindAgentsByCapability(x), a.ID, b.ID)
	assertSet(reg.FindAgentsByCapability(y), b.ID, c.ID)

	if err := reg.DeregisterLocal(b.ID); err != nil {
		t.Fatalf("DeregisterLocal: %v", err)
	}
	assertSet(reg.FindAgentsByCapability(x), a.ID)
	assertSet(reg.FindAgentsByCapability(y), c.ID)
}

func TestUpdateAgentHealth(t *testing.T) {
	reg := New()
	a := newLocalAgent(t, "alpha", "compute")
	if err := reg.RegisterLocal(a); err != nil {
		t.Fatalf("RegisterLocal: %v", err)
	}

	ts := time.Now()
	if err := reg.UpdateAgentHealth(a.ID, true, ts); err != nil {
		t.Fatalf("UpdateAgentHealth: %v", err)
	}
	got, ok := reg.Get(a.ID)
	if !ok {
		t.Fatalf("Get: agent missing after health update")
	}
	if !got.LastHeartbeat.Equal(ts) {
		t.Fatalf("expected LastHeartbeat %v, got %v", ts, got.LastHeartbeat)
	}
	if got.State != domain.AgentStateReady {
		t.Fatalf("expected State to remain %v on healthy update, got %v", domain.AgentStateReady, got.State)
	}

	if err := reg.UpdateAgentHealth(a.ID, false, ts.Add(time.Second)); err != nil {
		t.Fatalf("UpdateAgentHealth: %v", err)
	}
	got, _ = reg.Get(a.ID)
	if got.State != domain.AgentStateSuspended {
		t.Fatalf("expected State %v after unhealthy update, got %v", domain.AgentStateSuspended, got.State)
	}

	unknown := domain.NewAgentID()
	if err := reg.UpdateAgentHealth(unknown, true, ts); !errors.Is(err, domain.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound for unknown agent, got %v", err)
	}
}

func TestUpdateAgentHealthConcurrent(t *testing.T) {
	reg := New()
	a := newLocalAgent(t, "alpha", "compute")
	if err := reg.RegisterLocal(a); err != nil {
		t.Fatalf("RegisterLocal: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.UpdateAgentHealth(a.ID, true, time.Now()); err != nil {
				t.Errorf("UpdateAgentHealth: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, ok := reg.Get(a.ID); !ok {
		t.Fatalf("Get: agent missing after concurrent health updates")
	}
}

func TestUpdateRemoteRouteTracksNode(t *testing.T) {
	reg := New()
	agentID := domain.NewAgentID()
	node := domain.NewNodeID()
	reg.UpdateRemoteRoute(agentID, node, 1)

	loc, err := reg.Lookup(agentID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if loc.IsLocal || !loc.NodeID.Equal(node) {
		t.Fatalf("unexpected remote location: %+v", loc)
	}
	info, ok := reg.NodeHealth(node)
	if !ok || !info.Healthy || info.AgentCount != 1 {
		t.Fatalf("unexpected node info: %+v ok=%v", info, ok)
	}
}
