// Package schedule drives the runtime's periodic sweep jobs — expired
// conversation cleanup and a dead-letter report (sink size and oldest
// age are logged; entries are not removed) — from a cron schedule,
// grounded on the teacher's internal/scheduler.Scheduler (same
// cron.Cron-plus-mutex-held-entry-map lifecycle). Sweeper exports only
// Start and Stop; jobs are registered by name, and registering a name
// again replaces its earlier entry. It is reshaped from "invoke a
// registered function on a cron trigger" to "run a fixed set of
// maintenance sweeps on a cron trigger".
package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/caxton-rt/caxton/internal/conversation"
	"github.com/caxton-rt/caxton/internal/failure"
	"github.com/caxton-rt/caxton/internal/logging"
)

// Config controls the sweep cadence. Expressions use the standard
// five-field cron syntax plus the teacher's descriptor extension
// (@every, @hourly, ...).
type Config struct {
	ConversationSweepCron string
	DeadLetterSweepCron   string
	ConversationIdleAfter time.Duration
}

// Sweeper runs the periodic maintenance jobs.
type Sweeper struct {
	cron     *cron.Cron
	convs    *conversation.Manager
	failures *failure.Handler

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New constructs a Sweeper wired to the given conversation manager and
// failure handler.
func New(convs *conversation.Manager, failures *failure.Handler) *Sweeper {
	return &Sweeper{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
		convs:    convs,
		failures: failures,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start registers both sweep jobs and starts the cron scheduler.
func (s *Sweeper) Start(cfg Config) error {
	if cfg.ConversationSweepCron != "" {
		if err := s.addJob("conversation_sweep", cfg.ConversationSweepCron, s.sweepConversations); err != nil {
			return fmt.Errorf("schedule: register conversation sweep: %w", err)
		}
	}
	if cfg.DeadLetterSweepCron != "" {
		if err := s.addJob("dead_letter_sweep", cfg.DeadLetterSweepCron, s.sweepDeadLetters); err != nil {
			return fmt.Errorf("schedule: register dead-letter sweep: %w", err)
		}
	}
	s.cron.Start()
	logging.Op().Info("scheduler started", "jobs", len(s.entries))
	return nil
}

// Stop stops the cron scheduler without waiting for an in-flight job.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) addJob(name, expr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}
	id, err := s.cron.AddFunc(expr, fn)
	if err != nil {
		return err
	}
	s.entries[name] = id
	return nil
}

func (s *Sweeper) sweepConversations() {
	now := time.Now()
	removed := s.convs.CleanupExpired(now)
	if removed > 0 {
		logging.Op().Info("conversation sweep", "removed", removed)
	} else {
		logging.Op().Debug("conversation sweep", "removed", 0)
	}
}

func (s *Sweeper) sweepDeadLetters() {
	stats := s.failures.Stats(time.Now())
	logging.Op().Info("dead-letter sweep", "total", stats.Total, "oldest_age", stats.OldestAge.String())
}
