// Package metrics collects and exposes the runtime's observability data.
//
// # Design rationale
//
// Two metric stores coexist in this package, mirroring the teacher's own
// dual design (internal/metrics/metrics.go + prometheus.go in the
// retrieval pack): a lock-free, allocation-free in-process Metrics
// struct for the router and its subsystems to increment directly on the
// hot path, and a Prometheus-backed mirror (prometheus.go) for scraping.
// Call sites never need to know which consumer — a log line or a
// Prometheus exporter — eventually reads a given counter.
package metrics

import "sync/atomic"

// Metrics is the in-process counter set. Every field is safe for
// concurrent use and carries no locking.
type Metrics struct {
	MessagesRouted       atomic.Uint64
	MessagesFailed       atomic.Uint64
	MessagesRetried      atomic.Uint64
	DeadLettered         atomic.Uint64
	FuelExhaustions      atomic.Uint64
	ConversationsExpired atomic.Uint64
	QueueRejections      atomic.Uint64
}

// New constructs a zeroed Metrics set.
func New() *Metrics { return &Metrics{} }

// Snapshot is a point-in-time copy suitable for logging or exposing via a
// status endpoint.
type Snapshot struct {
	MessagesRouted       uint64
	MessagesFailed       uint64
	MessagesRetried      uint64
	DeadLettered         uint64
	FuelExhaustions      uint64
	ConversationsExpired uint64
	QueueRejections      uint64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		MessagesRouted:       m.MessagesRouted.Load(),
		MessagesFailed:       m.MessagesFailed.Load(),
		MessagesRetried:      m.MessagesRetried.Load(),
		DeadLettered:         m.DeadLettered.Load(),
		FuelExhaustions:      m.FuelExhaustions.Load(),
		ConversationsExpired: m.ConversationsExpired.Load(),
		QueueRejections:      m.QueueRejections.Load(),
	}
}
