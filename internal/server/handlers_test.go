package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/streamchat/internal/event"
	"github.com/streamchat-ai/streamchat/internal/eventlog"
	"github.com/streamchat-ai/streamchat/internal/provider"
	"github.com/streamchat-ai/streamchat/internal/routing"
	"github.com/streamchat-ai/streamchat/internal/session"
	"github.com/streamchat-ai/streamchat/internal/summary"
	"github.com/streamchat-ai/streamchat/internal/tool"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

type fakeProvider struct {
	chunks   []string
	complete string
}

func (f *fakeProvider) ID() string   { return "fake" }
func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) Stream(ctx context.Context, req *provider.Request) (provider.Stream, error) {
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, &schema.Message{Role: schema.Assistant, Content: c})
	}
	return provider.NewEinoStream(schema.StreamReaderFromArray(msgs)), nil
}

func (f *fakeProvider) Complete(ctx context.Context, directive, prompt string) (string, error) {
	return f.complete, nil
}

func newServerEnv(t *testing.T, fp *fakeProvider) *Server {
	t.Helper()

	log, err := eventlog.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	recorder := eventlog.NewAppender(log, 64)
	t.Cleanup(recorder.Close)

	providers := provider.NewRegistry()
	providers.Register(fp)

	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	router := routing.New(types.RoutingConfig{SummarizationTurns: 10, AnalyticalMinChars: 280})
	orchestrator := session.NewOrchestrator(providers, tool.DefaultRegistry(), router, recorder, bus, types.SessionConfig{})

	summaries := summary.NewPipeline(log, providers, bus, types.SummaryConfig{Workers: 1, QueueSize: 8})
	summaries.Start()
	t.Cleanup(summaries.Close)

	sessions := session.NewRegistry(log, recorder, bus, summaries, orchestrator)

	return New(DefaultConfig(), sessions, log, summaries, bus)
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// parseFrames extracts the data payloads from an SSE response body.
func parseFrames(t *testing.T, body string) []types.ClientEvent {
	t.Helper()

	var frames []types.ClientEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame types.ClientEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestHealth(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{})

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Sessions)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{})

	rec := doJSON(t, srv, http.MethodPost, "/session", `{"sessionID": "s1", "userID": "u1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sess types.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "s1", sess.ID)
	assert.Equal(t, types.PhaseActive, sess.Phase)

	// Duplicate open conflicts.
	rec = doJSON(t, srv, http.MethodPost, "/session", `{"sessionID": "s1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/session/s1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []types.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 1)

	// Close, then close again: both succeed.
	rec = doJSON(t, srv, http.MethodDelete, "/session/s1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodDelete, "/session/s1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSessionGeneratesID(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{})

	rec := doJSON(t, srv, http.MethodPost, "/session", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var sess types.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.ID)
}

func TestGetUnknownSession(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{})

	rec := doJSON(t, srv, http.MethodGet, "/session/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting an unknown session is an idempotent no-op.
	rec = doJSON(t, srv, http.MethodDelete, "/session/nope", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSendMessageStreams(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{chunks: []string{"Hel", "lo"}})

	rec := doJSON(t, srv, http.MethodPost, "/session", `{"sessionID": "s1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/session/s1/message", `{"message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseFrames(t, rec.Body.String())
	require.Len(t, frames, 3)
	assert.Equal(t, types.ClientToken, frames[0].Type)
	assert.Equal(t, "Hel", frames[0].Content)
	assert.Equal(t, types.ClientToken, frames[1].Type)
	assert.Equal(t, "lo", frames[1].Content)
	assert.Equal(t, types.ClientDone, frames[2].Type)
}

func TestSendMessageValidation(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{})

	rec := doJSON(t, srv, http.MethodPost, "/session", `{"sessionID": "s1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/session/s1/message", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/session/s1/message", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/session/nope/message", `{"message": "hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{chunks: []string{"answer"}, complete: "They talked."})

	rec := doJSON(t, srv, http.MethodPost, "/session", `{"sessionID": "s1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// No summary before the session ends.
	rec = doJSON(t, srv, http.MethodGet, "/session/s1/summary", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/session/s1/message", `{"message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/session/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		return doJSON(t, srv, http.MethodGet, "/session/s1/summary", "").Code == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)

	rec = doJSON(t, srv, http.MethodGet, "/session/s1/summary", "")
	var stored types.SessionSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "s1", stored.SessionID)
	assert.Equal(t, "They talked.", stored.Summary)
}

func TestGlobalEvents(t *testing.T) {
	srv := newServerEnv(t, &fakeProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/event", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Router().ServeHTTP(rec, req)
		close(done)
	}()

	// The connected handshake arrives before any bus traffic.
	require.Eventually(t, func() bool {
		return strings.Contains(rec.Body.String(), "server.connected")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not stop on disconnect")
	}
}
