// Package session owns the session lifecycle and the streaming turn loop.
// The registry is the single authority for which sessions exist; each
// session's state is touched by one turn at a time.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/streamchat-ai/streamchat/internal/event"
	"github.com/streamchat-ai/streamchat/internal/eventlog"
	"github.com/streamchat-ai/streamchat/internal/logging"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

// SummaryQueue accepts post-session summarization work. Enqueue returns
// false when the job was not accepted; close never blocks on it.
type SummaryQueue interface {
	Enqueue(sessionID string, startedAt, endedAt time.Time) bool
}

// Registry manages all live sessions.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle

	log       eventlog.Log
	recorder  *eventlog.Appender
	bus       *event.Bus
	summaries SummaryQueue

	orchestrator *Orchestrator
}

// Handle is one live session plus its turn serialization lock.
type Handle struct {
	// turnMu serializes turns: a second inbound message waits for the
	// current turn to finish.
	turnMu sync.Mutex

	mu     sync.Mutex
	sess   *types.Session
	cancel context.CancelFunc
}

// Snapshot returns a copy of the session state safe to serve to clients.
func (h *Handle) Snapshot() types.Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	copied := *h.sess
	copied.History = append([]types.Message(nil), h.sess.History...)
	return copied
}

func (h *Handle) phase() types.Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sess.Phase
}

// NewRegistry creates a session registry.
func NewRegistry(
	log eventlog.Log,
	recorder *eventlog.Appender,
	bus *event.Bus,
	summaries SummaryQueue,
	orchestrator *Orchestrator,
) *Registry {
	return &Registry{
		handles:      make(map[string]*Handle),
		log:          log,
		recorder:     recorder,
		bus:          bus,
		summaries:    summaries,
		orchestrator: orchestrator,
	}
}

// Open admits a new session. The session ID is the caller's correlation key;
// an empty ID gets a generated ULID. Opening an ID the registry already
// knows, live or closed, fails with ErrDuplicateSession.
func (r *Registry) Open(ctx context.Context, sessionID, userID string) (types.Session, error) {
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	if userID == "" {
		userID = sessionID
	}

	sess := &types.Session{
		ID:        sessionID,
		UserID:    userID,
		StartedAt: time.Now().UTC(),
		Phase:     types.PhaseActive,
		Turn:      types.TurnIdle,
	}

	r.mu.Lock()
	if _, exists := r.handles[sessionID]; exists {
		r.mu.Unlock()
		return types.Session{}, types.ErrDuplicateSession
	}
	handle := &Handle{sess: sess}
	r.handles[sessionID] = handle
	r.mu.Unlock()

	// Creation metadata is written best-effort: a storage hiccup must not
	// refuse the conversation.
	if err := r.log.CreateSession(ctx, sessionID, userID, sess.StartedAt); err != nil {
		logging.Warn().Err(err).Str("session", sessionID).Msg("failed to persist session metadata")
	}

	r.recorder.Append(types.EventRecord{
		SessionID: sessionID,
		Kind:      types.EventSystem,
		Content:   "Session started",
		Timestamp: sess.StartedAt,
	})

	r.bus.Publish(event.Event{
		Type: event.SessionOpened,
		Data: event.SessionOpenedData{SessionID: sessionID, UserID: userID},
	})

	logging.Info().Str("session", sessionID).Str("user", userID).Msg("session opened")
	return handle.Snapshot(), nil
}

// Get returns a snapshot of a live session.
func (r *Registry) Get(sessionID string) (types.Session, error) {
	r.mu.RLock()
	handle, ok := r.handles[sessionID]
	r.mu.RUnlock()

	if !ok {
		return types.Session{}, types.ErrSessionNotFound
	}
	return handle.Snapshot(), nil
}

// List returns snapshots of all live sessions.
func (r *Registry) List() []types.Session {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	sessions := make([]types.Session, 0, len(handles))
	for _, h := range handles {
		sessions = append(sessions, h.Snapshot())
	}
	return sessions
}

// Message runs one conversational turn and returns the outbound frame
// stream for it. The channel is closed when the turn finishes, whether with
// a done frame or an error frame. Turns on the same session run one at a
// time; concurrent calls queue.
func (r *Registry) Message(ctx context.Context, sessionID, text string) (<-chan types.ClientEvent, error) {
	r.mu.RLock()
	handle, ok := r.handles[sessionID]
	r.mu.RUnlock()

	if !ok || handle.phase() != types.PhaseActive {
		return nil, types.ErrSessionNotFound
	}

	out := make(chan types.ClientEvent, 64)

	go func() {
		defer close(out)

		handle.turnMu.Lock()
		defer handle.turnMu.Unlock()

		// Re-check: the session may have closed while this turn queued.
		if handle.phase() != types.PhaseActive {
			out <- types.ClientEvent{Type: types.ClientError, Kind: types.ErrKindAborted, Content: "session closed"}
			return
		}

		turnCtx, cancel := context.WithCancel(ctx)
		handle.mu.Lock()
		handle.cancel = cancel
		handle.mu.Unlock()

		r.orchestrator.Run(turnCtx, handle, text, out)

		handle.mu.Lock()
		handle.cancel = nil
		handle.mu.Unlock()
		cancel()
	}()

	return out, nil
}

// Close ends a session and hands it to the summarization pipeline. Close is
// idempotent all the way down: closing twice or closing an identifier the
// registry never saw are both no-ops. An in-flight turn is aborted.
func (r *Registry) Close(ctx context.Context, sessionID string) error {
	r.mu.RLock()
	handle, ok := r.handles[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil
	}

	handle.mu.Lock()
	if handle.sess.Phase != types.PhaseActive {
		handle.mu.Unlock()
		return nil
	}
	handle.sess.Phase = types.PhaseClosing
	startedAt := handle.sess.StartedAt
	userID := handle.sess.UserID
	cancel := handle.cancel
	handle.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	endedAt := time.Now().UTC()

	r.recorder.Append(types.EventRecord{
		SessionID: sessionID,
		Kind:      types.EventSystem,
		Content:   "Session ended",
		Timestamp: endedAt,
	})

	// The pipeline reads the durable log, so everything queued for this
	// session must land before the job runs.
	r.recorder.Flush()

	if r.summaries != nil {
		if !r.summaries.Enqueue(sessionID, startedAt, endedAt) {
			logging.Warn().Str("session", sessionID).Msg("summary queue full, skipping summarization")
		}
	}

	r.bus.Publish(event.Event{
		Type: event.SessionClosed,
		Data: event.SessionClosedData{SessionID: sessionID, UserID: userID},
	})

	handle.mu.Lock()
	handle.sess.Phase = types.PhaseClosed
	handle.mu.Unlock()

	logging.Info().Str("session", sessionID).Msg("session closed")
	return nil
}

// CloseAll closes every live session, used during server shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	for _, sess := range r.List() {
		if err := r.Close(ctx, sess.ID); err != nil {
			logging.Warn().Err(err).Str("session", sess.ID).Msg("failed to close session")
		}
	}
}

// marshalJSON renders v for a log record, falling back to an empty object.
func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
