package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/corvid-labs/agentgw/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			resource_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			run_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			seq INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, seq)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			parent_run_id TEXT,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_thread ON runs(thread_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread creates a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	metadata, _ := json.Marshal(thread.Metadata)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, resource_id, created_at, metadata) VALUES (?, ?, ?, ?)`,
		thread.ThreadID, thread.ResourceID, thread.CreatedAt, string(metadata))
	return err
}

// GetThread retrieves a thread by ID.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	var thread domain.Thread
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id, resource_id, created_at, metadata FROM threads WHERE thread_id = ?`,
		threadID).Scan(&thread.ThreadID, &thread.ResourceID, &thread.CreatedAt, &metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		thread.Metadata = json.RawMessage(metadata.String)
	}
	return &thread, nil
}

// GetOrCreateThread gets an existing thread or creates a new one.
func (s *SQLiteStore) GetOrCreateThread(ctx context.Context, threadID, resourceID string) (*domain.Thread, error) {
	thread, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread != nil {
		return thread, nil
	}

	thread = &domain.Thread{
		ThreadID:   threadID,
		ResourceID: resourceID,
		CreatedAt:  time.Now(),
	}
	if err := s.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// CreateMessage creates a new message at the end of its thread's history.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	metadata, _ := json.Marshal(message.Metadata)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, thread_id, run_id, role, content, seq, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE thread_id = ?), ?, ?)`,
		message.MessageID, message.ThreadID, message.RunID, message.Role, message.Content,
		message.ThreadID, message.CreatedAt, string(metadata))
	return err
}

// GetMessages retrieves messages for a thread in insertion order.
func (s *SQLiteStore) GetMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, thread_id, run_id, role, content, created_at, metadata
		 FROM messages WHERE thread_id = ? ORDER BY seq ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var runID, metadata sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.ThreadID, &runID, &msg.Role, &msg.Content, &msg.CreatedAt, &metadata); err != nil {
			return nil, err
		}
		if runID.Valid {
			msg.RunID = runID.String
		}
		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages in a thread.
func (s *SQLiteStore) CountMessages(ctx context.Context, threadID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE thread_id = ?`, threadID).Scan(&count)
	return count, err
}

// DeleteMessagesAfter truncates a thread's history to its first keep messages
// and returns how many were deleted. keep at or beyond the current count is a
// no-op.
func (s *SQLiteStore) DeleteMessagesAfter(ctx context.Context, threadID string, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE thread_id = ? AND seq NOT IN (
			SELECT seq FROM messages WHERE thread_id = ? ORDER BY seq ASC LIMIT ?
		)`,
		threadID, threadID, keep)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CreateRun creates a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	var parentRunID sql.NullString
	if run.ParentRunID != "" {
		parentRunID = sql.NullString{String: run.ParentRunID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, thread_id, agent_id, parent_run_id, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ThreadID, run.AgentID, parentRunID, run.Status, run.StartedAt)
	return err
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	var parentRunID, errData sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, thread_id, agent_id, parent_run_id, status, started_at, ended_at, error FROM runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &run.ThreadID, &run.AgentID, &parentRunID, &run.Status, &run.StartedAt, &endedAt, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if parentRunID.Valid {
		run.ParentRunID = parentRunID.String
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if errData.Valid {
		run.Error = json.RawMessage(errData.String)
	}
	return &run, nil
}

// UpdateRunStatus updates the status of a run.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE run_id = ?`,
		status, runID)
	return err
}

// UpdateRunCompleted updates a run to a terminal state.
func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error {
	now := time.Now()
	var errStr sql.NullString
	if errData != nil {
		errStr = sql.NullString{String: string(errData), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, error = ? WHERE run_id = ?`,
		status, now, errStr, runID)
	return err
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a run.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, run_id, ts, type, payload FROM events WHERE run_id = ?`
	args := []interface{}{runID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.RunID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
