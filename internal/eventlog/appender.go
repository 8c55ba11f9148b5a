package eventlog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamchat-ai/streamchat/internal/logging"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

// Appender decouples the orchestrator's hot path from log writes. Records are
// queued and written by a single background goroutine, preserving enqueue
// order. Delivery is at-least-once from the caller's view: a failed write is
// retried once, then dropped with an error log.
type Appender struct {
	log   Log
	queue chan types.EventRecord

	once    sync.Once
	done    chan struct{}
	wg      sync.WaitGroup
	pending atomic.Int64
}

// NewAppender starts an appender writing to log.
func NewAppender(log Log, queueSize int) *Appender {
	if queueSize <= 0 {
		queueSize = 1024
	}
	a := &Appender{
		log:   log,
		queue: make(chan types.EventRecord, queueSize),
		done:  make(chan struct{}),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Append enqueues a record, stamping the timestamp if unset. A full queue
// blocks the caller until the writer drains it, so records always land in
// enqueue order. Only during shutdown, when the writer is gone, is the
// record written inline.
func (a *Appender) Append(rec types.EventRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	a.pending.Add(1)
	select {
	case <-a.done:
		a.write(rec)
		a.pending.Add(-1)
	default:
		select {
		case a.queue <- rec:
		case <-a.done:
			a.write(rec)
			a.pending.Add(-1)
		}
	}
}

// Flush blocks until every record appended so far has been written. Used
// before handing a session's transcript to the summarization pipeline.
func (a *Appender) Flush() {
	for a.pending.Load() > 0 {
		time.Sleep(time.Millisecond)
	}
}

func (a *Appender) run() {
	defer a.wg.Done()
	for {
		select {
		case rec := <-a.queue:
			a.write(rec)
			a.pending.Add(-1)
		case <-a.done:
			// Drain what is already queued.
			for {
				select {
				case rec := <-a.queue:
					a.write(rec)
					a.pending.Add(-1)
				default:
					return
				}
			}
		}
	}
}

func (a *Appender) write(rec types.EventRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := a.log.Append(ctx, rec)
	if err == nil {
		return
	}
	if err = a.log.Append(ctx, rec); err != nil {
		logging.Error().
			Err(err).
			Str("sessionID", rec.SessionID).
			Str("kind", string(rec.Kind)).
			Msg("dropping event after failed append")
	}
}

// Close flushes queued records and stops the appender.
func (a *Appender) Close() {
	a.once.Do(func() { close(a.done) })
	a.wg.Wait()
}
