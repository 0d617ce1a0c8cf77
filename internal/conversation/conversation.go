// Package conversation implements the conversation directory: threads of
// related messages keyed by conversation id, with idle-timeout expiry and
// aggregate statistics.
package conversation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/caxton-rt/caxton/internal/domain"
)

// Conversation is the record for a thread of related messages.
type Conversation struct {
	ID           domain.ConversationID
	Participants map[domain.AgentID]struct{}
	Protocol     string
	CreatedAt    time.Time
	LastActivity time.Time
	MessageCount int64
}

// MaxMessageCount is the cap a conversation's message count clamps at
// rather than overflows past (typical cap from spec: 1,000,000).
const MaxMessageCount = 1_000_000

type entry struct {
	mu sync.Mutex
	c  Conversation
}

// Manager is the concurrent conversation directory, grounded on the same
// sync.Map idiom used throughout internal/registry: read-heavy lookups,
// infrequent inserts, per-key mutation.
type Manager struct {
	conversations sync.Map // domain.ConversationID -> *entry
	byAgent       sync.Map // domain.AgentID -> *agentIndex
	maxParticipants int
	idleTimeout     time.Duration
	totalCreated    atomic.Int64
}

type agentIndex struct {
	mu  sync.Mutex
	ids map[domain.ConversationID]struct{}
}

// New constructs a Manager with the given participant cap and idle
// expiry timeout.
func New(maxParticipants int, idleTimeout time.Duration) *Manager {
	return &Manager{maxParticipants: maxParticipants, idleTimeout: idleTimeout}
}

// GetOrCreate returns the existing conversation for id, or creates one
// with the given participants and optional protocol. It fails with
// *domain.TooManyParticipantsError if len(participants) exceeds the
// configured cap.
func (m *Manager) GetOrCreate(id domain.ConversationID, participants []domain.AgentID, protocol string, now time.Time) (Conversation, error) {
	if v, ok := m.conversations.Load(id); ok {
		e := v.(*entry)
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.c, nil
	}
	if len(participants) > m.maxParticipants {
		return Conversation{}, &domain.TooManyParticipantsError{Count: len(participants), Max: m.maxParticipants}
	}
	set := make(map[domain.AgentID]struct{}, len(participants))
	for _, p := range participants {
		set[p] = struct{}{}
	}
	c := Conversation{
		ID:           id,
		Participants: set,
		Protocol:     protocol,
		CreatedAt:    now,
		LastActivity: now,
	}
	e := &entry{c: c}
	actual, loaded := m.conversations.LoadOrStore(id, e)
	if loaded {
		existing := actual.(*entry)
		existing.mu.Lock()
		defer existing.mu.Unlock()
		return existing.c, nil
	}
	m.totalCreated.Add(1)
	for p := range set {
		m.indexAgent(p, id)
	}
	return c, nil
}

// Update appends activity for a message on conversation id: auto-creating
// it (with sender/receiver as participants) if this is the first sighting,
// incrementing message-count (clamped at MaxMessageCount) and advancing
// last-activity. Duration math never goes backward: if now precedes the
// conversation's current last-activity (clock skew), last-activity is left
// unchanged rather than moving backward.
func (m *Manager) Update(id domain.ConversationID, sender, receiver domain.AgentID, protocol string, now time.Time) (Conversation, error) {
	c, err := m.GetOrCreate(id, []domain.AgentID{sender, receiver}, protocol, now)
	if err != nil {
		return Conversation{}, err
	}
	_ = c
	v, _ := m.conversations.Load(id)
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.After(e.c.LastActivity) {
		e.c.LastActivity = now
	}
	if e.c.MessageCount < MaxMessageCount {
		e.c.MessageCount++
	}
	return e.c, nil
}

// AgentConversations enumerates the conversation ids agent participates
// in.
func (m *Manager) AgentConversations(agent domain.AgentID) []domain.ConversationID {
	v, ok := m.byAgent.Load(agent)
	if !ok {
		return []domain.ConversationID{}
	}
	idx := v.(*agentIndex)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]domain.ConversationID, 0, len(idx.ids))
	for id := range idx.ids {
		out = append(out, id)
	}
	return out
}

// CleanupExpired removes every conversation whose last-activity is older
// than the configured idle timeout, relative to now. It returns the
// number removed.
func (m *Manager) CleanupExpired(now time.Time) int {
	var removed []domain.ConversationID
	m.conversations.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		expired := now.Sub(e.c.LastActivity) > m.idleTimeout
		participants := e.c.Participants
		e.mu.Unlock()
		if expired {
			id := k.(domain.ConversationID)
			removed = append(removed, id)
			for p := range participants {
				m.unindexAgent(p, id)
			}
		}
		return true
	})
	for _, id := range removed {
		m.conversations.Delete(id)
	}
	return len(removed)
}

// Stats aggregates counts and distributions across all active
// conversations.
type Stats struct {
	TotalActive               int
	TotalCreated              int64
	AverageDuration           time.Duration
	AverageMessageCount       float64
	ParticipantSizeDistribution map[int]int
}

// ComputeStats returns the current aggregate statistics, evaluated at now.
func (m *Manager) ComputeStats(now time.Time) Stats {
	var (
		count        int
		totalDur     time.Duration
		totalMsgs    int64
		distribution = map[int]int{}
	)
	m.conversations.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		dur := e.c.LastActivity.Sub(e.c.CreatedAt)
		if dur < 0 {
			dur = 0
		}
		totalDur += dur
		totalMsgs += e.c.MessageCount
		distribution[len(e.c.Participants)]++
		e.mu.Unlock()
		count++
		return true
	})
	stats := Stats{
		TotalActive:                 count,
		TotalCreated:                m.totalCreated.Load(),
		ParticipantSizeDistribution: distribution,
	}
	if count > 0 {
		stats.AverageDuration = totalDur / time.Duration(count)
		stats.AverageMessageCount = float64(totalMsgs) / float64(count)
	}
	return stats
}

func (m *Manager) indexAgent(agent domain.AgentID, conv domain.ConversationID) {
	v, _ := m.byAgent.LoadOrStore(agent, &agentIndex{ids: make(map[domain.ConversationID]struct{})})
	idx := v.(*agentIndex)
	idx.mu.Lock()
	idx.ids[conv] = struct{}{}
	idx.mu.Unlock()
}

func (m *Manager) unindexAgent(agent domain.AgentID, conv domain.ConversationID) {
	v, ok := m.byAgent.Load(agent)
	if !ok {
		return
	}
	idx := v.(*agentIndex)
	idx.mu.Lock()
	delete(idx.ids, conv)
	empty := len(idx.ids) == 0
	idx.mu.Unlock()
	if empty {
		m.byAgent.CompareAndDelete(agent, v)
	}
}
