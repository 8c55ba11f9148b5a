// Package summary runs post-session summarization: after a session closes,
// its durable transcript is condensed by the model and written back next to
// the session record. The pipeline is best-effort; a failure leaves the
// session without a summary and never affects live traffic.
package summary

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamchat-ai/streamchat/internal/event"
	"github.com/streamchat-ai/streamchat/internal/eventlog"
	"github.com/streamchat-ai/streamchat/internal/logging"
	"github.com/streamchat-ai/streamchat/internal/provider"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

const (
	// DefaultWorkers is the worker count when unconfigured.
	DefaultWorkers = 2
	// DefaultQueueSize is the job queue capacity when unconfigured.
	DefaultQueueSize = 256
	// jobTimeout bounds one summarization attempt.
	jobTimeout = 60 * time.Second
)

const summaryDirective = `You are a conversation summarizer.
Produce a concise summary of the conversation transcript you are given,
two to three sentences covering the main topics discussed, the questions
asked, and the overall outcome. Respond with the summary text only.`

type job struct {
	sessionID string
	startedAt time.Time
	endedAt   time.Time
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Skipped   uint64 `json:"skipped"`
	Queued    int    `json:"queued"`
}

// Pipeline is the summarization worker pool.
type Pipeline struct {
	log       eventlog.Log
	providers *provider.Registry
	bus       *event.Bus

	queue   chan job
	workers int
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool

	processed atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
}

// NewPipeline creates a summarization pipeline. Start must be called before
// jobs are processed.
func NewPipeline(log eventlog.Log, providers *provider.Registry, bus *event.Bus, cfg types.SummaryConfig) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Pipeline{
		log:       log,
		providers: providers,
		bus:       bus,
		queue:     make(chan job, queueSize),
		workers:   workers,
	}
}

// Start launches the worker pool.
func (p *Pipeline) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Enqueue submits a session for summarization. Returns false when the queue
// is full or the pipeline is shut down; the caller treats that as a skipped
// summary, never an error.
func (p *Pipeline) Enqueue(sessionID string, startedAt, endedAt time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.queue <- job{sessionID: sessionID, startedAt: startedAt, endedAt: endedAt}:
		return true
	default:
		return false
	}
}

// Close drains the queue and stops the workers. Queued jobs still run.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns current pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Skipped:   p.skipped.Load(),
		Queued:    len(p.queue),
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.process(j)
	}
}

func (p *Pipeline) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	records, err := p.log.Events(ctx, j.sessionID)
	if err != nil {
		p.fail(j, fmt.Errorf("failed to read event log: %w", err))
		return
	}

	transcript := buildTranscript(records)
	if transcript == "" {
		// Nothing was said; no summary to write.
		p.skipped.Add(1)
		logging.Debug().Str("session", j.sessionID).Msg("empty transcript, skipping summary")
		return
	}

	prov, err := p.providers.Default()
	if err != nil {
		p.fail(j, err)
		return
	}

	text, err := prov.Complete(ctx, summaryDirective, transcript)
	if err != nil {
		p.fail(j, err)
		return
	}

	summary := types.SessionSummary{
		SessionID:       j.sessionID,
		EndedAt:         j.endedAt,
		DurationSeconds: durationSeconds(records, j),
		Summary:         strings.TrimSpace(text),
	}

	if err := p.log.WriteSummary(ctx, summary); err != nil {
		p.fail(j, fmt.Errorf("failed to write summary: %w", err))
		return
	}

	p.processed.Add(1)
	p.bus.Publish(event.Event{
		Type: event.SummaryReady,
		Data: event.SummaryReadyData{Summary: &summary},
	})
	logging.Info().
		Str("session", j.sessionID).
		Int("duration_seconds", summary.DurationSeconds).
		Msg("session summarized")
}

func (p *Pipeline) fail(j job, err error) {
	p.failed.Add(1)
	p.bus.Publish(event.Event{
		Type: event.SummaryFailed,
		Data: event.SummaryFailedData{SessionID: j.sessionID, Reason: err.Error()},
	})
	logging.Warn().Err(err).Str("session", j.sessionID).Msg("summarization failed")
}

// durationSeconds computes session duration from the first and last logged
// events, falling back to the job's lifecycle timestamps when the log is
// thin.
func durationSeconds(records []types.EventRecord, j job) int {
	if len(records) >= 2 {
		d := records[len(records)-1].Timestamp.Sub(records[0].Timestamp)
		if d > 0 {
			return int(d.Seconds())
		}
	}
	if d := j.endedAt.Sub(j.startedAt); d > 0 {
		return int(d.Seconds())
	}
	return 0
}

// buildTranscript renders the event log as a readable transcript.
// Consecutive token fragments collapse into one assistant line.
func buildTranscript(records []types.EventRecord) string {
	var b strings.Builder
	var assistant strings.Builder

	flush := func() {
		if assistant.Len() == 0 {
			return
		}
		fmt.Fprintf(&b, "Assistant: %s\n", assistant.String())
		assistant.Reset()
	}

	for _, rec := range records {
		switch rec.Kind {
		case types.EventAIToken:
			assistant.WriteString(rec.Content)

		case types.EventUserMessage:
			flush()
			fmt.Fprintf(&b, "User: %s\n", rec.Content)

		case types.EventToolCall:
			flush()
			fmt.Fprintf(&b, "[tool call] %s\n", rec.Content)

		case types.EventToolResult:
			flush()
			fmt.Fprintf(&b, "[tool result] %s\n", rec.Content)

		case types.EventSystem:
			// Lifecycle markers carry no conversational content.
		}
	}
	flush()

	return strings.TrimSpace(b.String())
}
