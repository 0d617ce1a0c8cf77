package schedule

import (
	"testing"
	"time"

	"github.com/caxton-rt/caxton/internal/conversation"
	"github.com/caxton-rt/caxton/internal/domain"
	"github.com/caxton-rt/caxton/internal/failure"
)

func TestConversationSweepRemovesExpiredOnTick(t *testing.T) {
	convs := conversation.New(16, time.Millisecond)
	fh := failure.New(failure.Config{MaxRetries: 3, BaseBackoff: time.Millisecond})
	a, b := domain.NewAgentID(), domain.NewAgentID()
	old := time.Now().Add(-time.Hour)
	if _, err := convs.GetOrCreate(domain.NewConversationID(), []domain.AgentID{a, b}, "", old); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	s := New(convs, fh)
	s.sweepConversations()

	stats := convs.ComputeStats(time.Now())
	if stats.TotalActive != 0 {
		t.Fatalf("expected the idle conversation to be swept, got %d active", stats.TotalActive)
	}
}

func TestStartRegistersBothJobs(t *testing.T) {
	convs := conversation.New(16, time.Hour)
	fh := failure.New(failure.Config{MaxRetries: 3, BaseBackoff: time.Millisecond})
	s := New(convs, fh)
	defer s.Stop()

	if err := s.Start(Config{ConversationSweepCron: "@every 1h", DeadLetterSweepCron: "@every 1h"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(s.entries) != 2 {
		t.Fatalf("expected 2 registered jobs, got %d", len(s.entries))
	}
}
