package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
	"github.com/streamchat-ai/streamchat/pkg/types"
)

// SQLite implements Log on a local sqlite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The driver is safe for concurrent use, but sqlite serializes writers;
	// a single connection avoids SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id       TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			start_time       TIMESTAMP NOT NULL,
			end_time         TIMESTAMP,
			duration_seconds INTEGER,
			final_summary    TEXT
		);
		CREATE TABLE IF NOT EXISTS session_events (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			content    TEXT NOT NULL,
			timestamp  TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_session_events_session
			ON session_events(session_id, timestamp, seq);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateSession records session creation metadata. Re-creating an existing
// session is a no-op so reconnects with a caller-supplied ID don't fail.
func (s *SQLite) CreateSession(ctx context.Context, sessionID, userID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, start_time)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sessionID, userID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session record: %w", err)
	}
	return nil
}

// Append appends one event record.
func (s *SQLite) Append(ctx context.Context, rec types.EventRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_events (session_id, event_type, content, timestamp)
		VALUES (?, ?, ?, ?)
	`, rec.SessionID, string(rec.Kind), rec.Content, ts.UTC())
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Events returns all records for a session ordered by (timestamp, seq), which
// reconstructs the transcript.
func (s *SQLite) Events(ctx context.Context, sessionID string) ([]types.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, content, timestamp
		FROM session_events
		WHERE session_id = ?
		ORDER BY timestamp, seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var records []types.EventRecord
	for rows.Next() {
		var (
			kind    string
			content string
			ts      time.Time
		)
		if err := rows.Scan(&kind, &content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		records = append(records, types.EventRecord{
			SessionID: sessionID,
			Kind:      types.EventKind(kind),
			Content:   content,
			Timestamp: ts,
		})
	}
	return records, rows.Err()
}

// WriteSummary upserts the post-session summary by session ID.
func (s *SQLite) WriteSummary(ctx context.Context, summary types.SessionSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, start_time, end_time, duration_seconds, final_summary)
		VALUES (?, '', ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			end_time = excluded.end_time,
			duration_seconds = excluded.duration_seconds,
			final_summary = excluded.final_summary
	`, summary.SessionID, summary.EndedAt.UTC(), summary.EndedAt.UTC(), summary.DurationSeconds, summary.Summary)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// Summary returns the stored summary for a session.
func (s *SQLite) Summary(ctx context.Context, sessionID string) (*types.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT end_time, duration_seconds, final_summary
		FROM sessions
		WHERE session_id = ? AND final_summary IS NOT NULL
	`, sessionID)

	var (
		endedAt  time.Time
		duration int
		text     string
	)
	if err := row.Scan(&endedAt, &duration, &text); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}

	return &types.SessionSummary{
		SessionID:       sessionID,
		EndedAt:         endedAt,
		DurationSeconds: duration,
		Summary:         text,
	}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
