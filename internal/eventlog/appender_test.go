package eventlog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// gatedLog holds every append on a gate channel and records arrival order.
type gatedLog struct {
	gate chan struct{}

	mu       sync.Mutex
	contents []string
}

func (l *gatedLog) CreateSession(ctx context.Context, sessionID, userID string, startedAt time.Time) error {
	return nil
}

func (l *gatedLog) Append(ctx context.Context, rec types.EventRecord) error {
	<-l.gate
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contents = append(l.contents, rec.Content)
	return nil
}

func (l *gatedLog) Events(ctx context.Context, sessionID string) ([]types.EventRecord, error) {
	return nil, nil
}

func (l *gatedLog) WriteSummary(ctx context.Context, summary types.SessionSummary) error {
	return nil
}

func (l *gatedLog) Summary(ctx context.Context, sessionID string) (*types.SessionSummary, error) {
	return nil, ErrNotFound
}

func (l *gatedLog) Close() error { return nil }

func (l *gatedLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.contents...)
}

func TestAppendKeepsOrderWhenQueueFull(t *testing.T) {
	log := &gatedLog{gate: make(chan struct{})}
	a := NewAppender(log, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, content := range []string{"a", "b", "c", "d"} {
			a.Append(types.EventRecord{SessionID: "s1", Kind: types.EventAIToken, Content: content})
		}
	}()

	// With the writer held up and a single-slot queue, the later appends
	// must wait instead of jumping ahead of the queued records.
	select {
	case <-done:
		t.Fatal("appends completed before the writer was released")
	case <-time.After(50 * time.Millisecond):
	}

	close(log.gate)
	<-done
	a.Flush()
	a.Close()

	assert.Equal(t, []string{"a", "b", "c", "d"}, log.all())
}
