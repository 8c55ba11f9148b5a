// Package eventlog provides the durable append-only event store and the
// session summary table backing the summarization pipeline.
package eventlog

import (
	"context"
	"errors"
	"time"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

var ErrNotFound = errors.New("not found")

// Log is the durable store contract consumed by the orchestrator and the
// summarization pipeline. Appends are at-least-once; the summary write is an
// idempotent upsert keyed by session ID.
type Log interface {
	// CreateSession records session creation metadata.
	CreateSession(ctx context.Context, sessionID, userID string, startedAt time.Time) error

	// Append appends one event record.
	Append(ctx context.Context, rec types.EventRecord) error

	// Events returns all records for a session in transcript order.
	Events(ctx context.Context, sessionID string) ([]types.EventRecord, error)

	// WriteSummary upserts the post-session summary.
	WriteSummary(ctx context.Context, summary types.SessionSummary) error

	// Summary returns the stored summary, or ErrNotFound when the pipeline
	// has not written one.
	Summary(ctx context.Context, sessionID string) (*types.SessionSummary, error)

	Close() error
}
