// Package persist implements the embedded relational store: two tables,
// an idempotent schema bootstrap, and upsert-by-id writes, following the
// teacher's own internal/store/postgres.go idiom (ensureSchema run once
// at open, CREATE TABLE IF NOT EXISTS) but against a local embedded
// database rather than a network one, per the runtime's persistence
// requirement.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/caxton-rt/caxton/internal/domain"
)

// Store is the embedded SQLite-backed persistence layer for the agent
// registry and conversation state.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and bootstraps
// its schema. path may be ":memory:" for an ephemeral, test-only store.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid pool contention
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schemaAgentRegistry = `
CREATE TABLE IF NOT EXISTS agent_registry (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);`

const schemaConversationState = `
CREATE TABLE IF NOT EXISTS conversation_state (
	id               TEXT PRIMARY KEY,
	participants_blob TEXT NOT NULL,
	protocol         TEXT,
	created_at       INTEGER NOT NULL,
	last_activity    INTEGER NOT NULL,
	message_count    INTEGER NOT NULL
);`

// ensureSchema is idempotent: CREATE TABLE IF NOT EXISTS makes repeated
// calls (e.g. across restarts) safe.
func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range []string{schemaAgentRegistry, schemaConversationState} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPersistenceIO, err)
		}
	}
	return nil
}

// AgentRecord is the persisted row for an agent.
type AgentRecord struct {
	ID        domain.AgentID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertAgent writes rec, inserting or replacing by id.
func (s *Store) UpsertAgent(ctx context.Context, rec AgentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_registry (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, rec.ID.String(), rec.Name, rec.CreatedAt.Unix(), rec.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("%w: upsert agent: %v", domain.ErrPersistenceIO, err)
	}
	return nil
}

// DeleteAgent removes an agent's persisted row.
func (s *Store) DeleteAgent(ctx context.Context, id domain.AgentID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agent_registry WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("%w: delete agent: %v", domain.ErrPersistenceIO, err)
	}
	return nil
}

// LoadAgents reconstructs every persisted agent record, for rehydrating
// the in-memory registry at startup.
func (s *Store) LoadAgents(ctx context.Context) ([]AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM agent_registry`)
	if err != nil {
		return nil, fmt.Errorf("%w: load agents: %v", domain.ErrPersistenceIO, err)
	}
	defer rows.Close()

	var out []AgentRecord
	for rows.Next() {
		var (
			idStr              string
			name               string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&idStr, &name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan agent row: %v", domain.ErrPersistenceCorruption, err)
		}
		id, err := domain.ParseAgentID(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceCorruption, err)
		}
		out = append(out, AgentRecord{
			ID:        id,
			Name:      name,
			CreatedAt: time.Unix(createdAt, 0).UTC(),
			UpdatedAt: time.Unix(updatedAt, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// ConversationRecord is the persisted row for a conversation.
type ConversationRecord struct {
	ID               domain.ConversationID
	ParticipantsBlob string // comma-joined agent id strings
	Protocol         string
	CreatedAt        time.Time
	LastActivity     time.Time
	MessageCount     int64
}

// UpsertConversation writes rec, inserting or replacing by id.
func (s *Store) UpsertConversation(ctx context.Context, rec ConversationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_state (id, participants_blob, protocol, created_at, last_activity, message_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			participants_blob = excluded.participants_blob,
			protocol          = excluded.protocol,
			last_activity     = excluded.last_activity,
			message_count     = excluded.message_count
	`, rec.ID.String(), rec.ParticipantsBlob, rec.Protocol, rec.CreatedAt.Unix(), rec.LastActivity.Unix(), rec.MessageCount)
	if err != nil {
		return fmt.Errorf("%w: upsert conversation: %v", domain.ErrPersistenceIO, err)
	}
	return nil
}

// LoadConversations reconstructs every persisted conversation record.
func (s *Store) LoadConversations(ctx context.Context) ([]ConversationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participants_blob, protocol, created_at, last_activity, message_count
		FROM conversation_state
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: load conversations: %v", domain.ErrPersistenceIO, err)
	}
	defer rows.Close()

	var out []ConversationRecord
	for rows.Next() {
		var (
			idStr                      string
			participants, protocol     string
			createdAt, lastActivity    int64
			messageCount               int64
		)
		if err := rows.Scan(&idStr, &participants, &protocol, &createdAt, &lastActivity, &messageCount); err != nil {
			return nil, fmt.Errorf("%w: scan conversation row: %v", domain.ErrPersistenceCorruption, err)
		}
		id, err := domain.ParseConversationID(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceCorruption, err)
		}
		out = append(out, ConversationRecord{
			ID:               id,
			ParticipantsBlob: participants,
			Protocol:         protocol,
			CreatedAt:        time.Unix(createdAt, 0).UTC(),
			LastActivity:     time.Unix(lastActivity, 0).UTC(),
			MessageCount:     messageCount,
		})
	}
	return out, rows.Err()
}
