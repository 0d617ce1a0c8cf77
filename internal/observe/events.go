// Package observe emits structured, leveled log lines for the runtime's
// observable lifecycle events — sandbox phase transitions, routing
// outcomes, and periodic health summaries — through the teacher's own
// logging.Op() slog handle. FuelExhausted and ConversationExpired also
// increment the matching metrics.Metrics and Prometheus counters;
// MessageRouted and MessageDeadLettered increment only the Prometheus
// counters (the router increments metrics.Metrics for those itself);
// SandboxTransition and HealthSummary only log.
//
// The teacher's own internal/observability package wires OpenTelemetry
// tracing; that dependency has no other component in this runtime to
// export spans to (no collector endpoint in scope) and is dropped in
// favor of the same structured-logging idiom the teacher already uses
// for everything short of distributed tracing.
package observe

import (
	"context"
	"time"

	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/logging"
	"github.com/caxton-rt/caxton/internal/metrics"
	"github.com/caxton-rt/caxton/internal/sandbox"
)

// Recorder ties log emission to metrics recording: every observable event
// produces a structured log line, and the counted events (see the package
// comment) also increment their counters.
type Recorder struct {
	metrics    *metrics.Metrics
	prometheus *metrics.PrometheusMetrics
}

// New constructs a Recorder. prom may be nil when Prometheus export is
// disabled (observability.enable_metrics = false).
func New(m *metrics.Metrics, prom *metrics.PrometheusMetrics) *Recorder {
	return &Recorder{metrics: m, prometheus: prom}
}

// SandboxTransition logs a sandbox phase change for agent.
func (r *Recorder) SandboxTransition(ctx context.Context, agent domain.AgentID, from, to sandbox.Phase) {
	logging.WithFields("agent_id", agent.String(), "from_phase", string(from), "to_phase", string(to)).
		InfoContext(ctx, "sandbox phase transition")
}

// FuelExhausted logs and counts a sandbox hitting its fuel budget.
func (r *Recorder) FuelExhausted(ctx context.Context, agent domain.AgentID, requested, available uint64) {
	logging.WithFields("agent_id", agent.String(), "requested", requested, "available", available).
		WarnContext(ctx, "sandbox fuel exhausted")
	if r.metrics != nil {
		r.metrics.FuelExhaustions.Add(1)
	}
	if r.prometheus != nil {
		r.prometheus.RecordFuelExhaustion()
	}
}

// MessageRouted logs a successfully delivered message and counts it on
// the Prometheus mirror only.
func (r *Recorder) MessageRouted(ctx context.Context, id domain.MessageID, sender, receiver domain.AgentID) {
	logging.WithFields("message_id", id.String(), "sender", sender.String(), "receiver", receiver.String()).
		DebugContext(ctx, "message routed")
	if r.prometheus != nil {
		r.prometheus.RecordRouted()
	}
}

// MessageDeadLettered logs a message moved to the dead-letter queue and
// counts it on the Prometheus mirror only.
func (r *Recorder) MessageDeadLettered(ctx context.Context, id domain.MessageID, reason string, attempts int) {
	logging.WithFields("message_id", id.String(), "reason", reason, "attempts", attempts).
		WarnContext(ctx, "message dead-lettered")
	if r.prometheus != nil {
		r.prometheus.RecordDeadLettered(reason)
	}
}

// ConversationExpired logs and counts an idle conversation swept by the
// periodic cleanup job.
func (r *Recorder) ConversationExpired(ctx context.Context, id domain.ConversationID, idleFor time.Duration) {
	logging.WithFields("conversation_id", id.String(), "idle_for", idleFor.String()).
		InfoContext(ctx, "conversation expired")
	if r.metrics != nil {
		r.metrics.ConversationsExpired.Add(1)
	}
	if r.prometheus != nil {
		r.prometheus.RecordConversationExpired()
	}
}

// HealthSummary logs a periodic health snapshot of the runtime.
func (r *Recorder) HealthSummary(ctx context.Context, snap metrics.Snapshot) {
	logging.WithFields(
		"messages_routed", snap.MessagesRouted,
		"messages_failed", snap.MessagesFailed,
		"messages_retried", snap.MessagesRetried,
		"dead_lettered", snap.DeadLettered,
		"fuel_exhaustions", snap.FuelExhaustions,
		"conversations_expired", snap.ConversationsExpired,
		"queue_rejections", snap.QueueRejections,
	).InfoContext(ctx, "health summary")
}
