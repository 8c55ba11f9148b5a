package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/streamchat-ai/streamchat/internal/event"
	"github.com/streamchat-ai/streamchat/internal/eventlog"
	"github.com/streamchat-ai/streamchat/internal/logging"
	"github.com/streamchat-ai/streamchat/internal/provider"
	"github.com/streamchat-ai/streamchat/internal/routing"
	"github.com/streamchat-ai/streamchat/internal/tool"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

const (
	// MaxToolChain is the default cap on tool invocations within one turn.
	MaxToolChain = 8
	// MaxRetries is how many times a turn retries an unreachable provider
	// before surfacing the failure.
	MaxRetries = 1
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 15 * time.Second
	// RetryMaxElapsedTime is the maximum total time spent retrying.
	RetryMaxElapsedTime = time.Minute
)

// newRetryBackoff creates an exponential backoff with jitter for provider
// retries, cancelled with the turn context.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// Orchestrator drives the streaming turn loop: route, invoke the provider,
// relay tokens, resolve tool calls, repeat until the model stops asking for
// tools or the chain cap trips.
type Orchestrator struct {
	providers    *provider.Registry
	tools        *tool.Registry
	router       *routing.Engine
	recorder     *eventlog.Appender
	bus          *event.Bus
	maxToolChain int
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	providers *provider.Registry,
	tools *tool.Registry,
	router *routing.Engine,
	recorder *eventlog.Appender,
	bus *event.Bus,
	cfg types.SessionConfig,
) *Orchestrator {
	maxChain := cfg.MaxToolChain
	if maxChain <= 0 {
		maxChain = MaxToolChain
	}
	return &Orchestrator{
		providers:    providers,
		tools:        tools,
		router:       router,
		recorder:     recorder,
		bus:          bus,
		maxToolChain: maxChain,
	}
}

// Run executes one conversational turn. The caller holds the handle's turn
// lock; frames go to out, which the caller closes afterwards.
func (o *Orchestrator) Run(ctx context.Context, h *Handle, text string, out chan<- types.ClientEvent) {
	h.mu.Lock()
	sess := h.sess
	sess.History = append(sess.History, types.Message{Role: types.RoleUser, Content: text})
	sess.UserTurns++
	sess.Turn = types.TurnStreaming
	sessionID := sess.ID
	userID := sess.UserID
	turn := sess.UserTurns
	h.mu.Unlock()

	o.recorder.Append(types.EventRecord{
		SessionID: sessionID,
		Kind:      types.EventUserMessage,
		Content:   text,
		Timestamp: time.Now().UTC(),
	})

	prov, err := o.providers.Default()
	if err != nil {
		o.failTurn(h, out, turn, types.NewSessionError(types.ErrKindProviderUnavailable, err))
		return
	}

	chain := 0
	for {
		h.mu.Lock()
		history := append([]types.Message(nil), sess.History...)
		h.mu.Unlock()

		// Routed fresh per provider invocation: the tool turns appended
		// during a chain can shift the strategy.
		decision := o.router.Decide(history)
		if chain == 0 {
			o.bus.Publish(event.Event{
				Type: event.TurnStarted,
				Data: event.TurnStartedData{SessionID: sessionID, Turn: decision.Turn, Strategy: decision.Strategy},
			})
			logging.Debug().
				Str("session", sessionID).
				Int("turn", decision.Turn).
				Str("strategy", string(decision.Strategy)).
				Msg("turn started")
		}

		req := &provider.Request{
			Directive: decision.Directive,
			Messages:  toEinoMessages(history),
			Tools:     o.tools.ToolInfos(),
		}

		stream, err := o.openStream(ctx, prov, req)
		if err != nil {
			o.failTurn(h, out, decision.Turn, err)
			return
		}

		full, err := o.drainStream(stream, sessionID, out)
		stream.Close()
		if err != nil {
			o.failTurn(h, out, decision.Turn, err)
			return
		}

		assistant := fromEinoAssistant(full)
		h.mu.Lock()
		sess.History = append(sess.History, assistant)
		h.mu.Unlock()

		if len(assistant.ToolCalls) == 0 {
			h.mu.Lock()
			sess.Turn = types.TurnIdle
			totalCalls := sess.ToolCalls
			h.mu.Unlock()

			out <- types.ClientEvent{Type: types.ClientDone}
			o.recorder.Append(types.EventRecord{
				SessionID: sessionID,
				Kind:      types.EventSystem,
				Content:   "Turn completed",
				Timestamp: time.Now().UTC(),
			})
			o.bus.Publish(event.Event{
				Type: event.TurnCompleted,
				Data: event.TurnCompletedData{SessionID: sessionID, Turn: decision.Turn, ToolCalls: totalCalls},
			})
			return
		}

		h.mu.Lock()
		sess.Turn = types.TurnToolPending
		h.mu.Unlock()

		for i, call := range assistant.ToolCalls {
			chain++
			if chain > o.maxToolChain {
				o.resolveAborted(h, sess, assistant.ToolCalls[i:])
				err := fmt.Errorf("tool chain exceeded %d calls in one turn", o.maxToolChain)
				o.failTurn(h, out, decision.Turn, types.NewSessionError(types.ErrKindToolLoopExceeded, err))
				return
			}

			payload := o.invokeTool(ctx, sessionID, userID, call, out)

			h.mu.Lock()
			sess.History = append(sess.History, types.Message{
				Role:       types.RoleTool,
				Content:    string(payload),
				ToolCallID: call.ID,
			})
			sess.ToolCalls++
			h.mu.Unlock()
		}

		h.mu.Lock()
		sess.Turn = types.TurnStreaming
		h.mu.Unlock()
	}
}

// openStream starts a provider stream. An unreachable provider is retried
// with backoff before the failure surfaces; rate limiting and quota
// exhaustion go straight to the client, which decides whether to back off.
func (o *Orchestrator) openStream(ctx context.Context, prov provider.Provider, req *provider.Request) (provider.Stream, error) {
	retryBackoff := newRetryBackoff(ctx)
	for {
		stream, err := prov.Stream(ctx, req)
		if err == nil {
			return stream, nil
		}

		serr := provider.Classify(err)
		if serr.Kind != types.ErrKindProviderUnavailable {
			return nil, serr
		}

		next := retryBackoff.NextBackOff()
		if next == backoff.Stop {
			return nil, serr
		}
		logging.Warn().Err(err).Dur("backoff", next).Msg("provider stream failed, retrying")
		select {
		case <-time.After(next):
		case <-ctx.Done():
			return nil, provider.Classify(ctx.Err())
		}
	}
}

// drainStream relays token fragments to the client as they arrive and
// returns the concatenated assistant message. Mid-stream failures are not
// retried: tokens already relayed cannot be unsent.
func (o *Orchestrator) drainStream(stream provider.Stream, sessionID string, out chan<- types.ClientEvent) (*schema.Message, error) {
	var chunks []*schema.Message

	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, provider.Classify(err)
		}

		if msg.Content != "" {
			out <- types.ClientEvent{Type: types.ClientToken, Content: msg.Content}
			o.recorder.Append(types.EventRecord{
				SessionID: sessionID,
				Kind:      types.EventAIToken,
				Content:   msg.Content,
				Timestamp: time.Now().UTC(),
			})
		}

		chunks = append(chunks, msg)
	}

	if len(chunks) == 0 {
		return &schema.Message{Role: schema.Assistant}, nil
	}

	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, types.NewSessionError(types.ErrKindInternal, err)
	}
	return full, nil
}

// resolveAborted closes out tool calls that never ran because the chain cap
// tripped. The assistant turn carrying them is already part of the history,
// and providers reject a history whose tool calls have no results, so each
// unanswered call gets an error result before the turn fails.
func (o *Orchestrator) resolveAborted(h *Handle, sess *types.Session, calls []types.ToolCall) {
	payload := marshalJSON(map[string]string{
		"error":   string(types.ErrKindToolLoopExceeded),
		"message": "tool chain cap reached, call not executed",
	})

	h.mu.Lock()
	for _, call := range calls {
		sess.History = append(sess.History, types.Message{
			Role:       types.RoleTool,
			Content:    payload,
			ToolCallID: call.ID,
		})
	}
	h.mu.Unlock()
}

// invokeTool resolves one tool call and returns the result payload. All
// failures are contained: they become an error payload the model sees on the
// next invocation, never a terminated turn.
func (o *Orchestrator) invokeTool(ctx context.Context, sessionID, userID string, call types.ToolCall, out chan<- types.ClientEvent) json.RawMessage {
	out <- types.ClientEvent{Type: types.ClientToolCall, Tool: call.Name, Arguments: call.Arguments}
	o.recorder.Append(types.EventRecord{
		SessionID: sessionID,
		Kind:      types.EventToolCall,
		Content:   marshalJSON(map[string]any{"tool": call.Name, "arguments": call.Arguments}),
		Timestamp: time.Now().UTC(),
	})

	var payload json.RawMessage

	res, err := o.tools.Execute(ctx, call.Name, call.Arguments, &tool.Context{
		SessionID: sessionID,
		UserID:    userID,
		CallID:    call.ID,
	})
	if err != nil {
		kind := types.ErrKindToolExecutionFailed
		var te *types.ToolError
		if errors.As(err, &te) {
			kind = te.Kind
		}
		payload = json.RawMessage(marshalJSON(map[string]string{
			"error":   string(kind),
			"message": err.Error(),
		}))
		logging.Warn().Err(err).Str("session", sessionID).Str("tool", call.Name).Msg("tool call failed")
	} else {
		payload = res.Payload
	}

	out <- types.ClientEvent{Type: types.ClientToolResult, Tool: call.Name, Result: payload}
	o.recorder.Append(types.EventRecord{
		SessionID: sessionID,
		Kind:      types.EventToolResult,
		Content:   marshalJSON(map[string]any{"tool": call.Name, "result": payload}),
		Timestamp: time.Now().UTC(),
	})

	return payload
}

// failTurn terminates the turn with a classified error frame. The session
// passes through Errored and settles at Idle: a failed turn never stops the
// session from accepting the next message.
func (o *Orchestrator) failTurn(h *Handle, out chan<- types.ClientEvent, turn int, err error) {
	kind := types.ErrorKindOf(err)

	message := err.Error()
	var se *types.SessionError
	if errors.As(err, &se) && se.Message != "" {
		message = se.Message
	}

	h.mu.Lock()
	h.sess.Turn = types.TurnErrored
	sessionID := h.sess.ID
	h.mu.Unlock()

	out <- types.ClientEvent{Type: types.ClientError, Kind: kind, Content: message}
	o.recorder.Append(types.EventRecord{
		SessionID: sessionID,
		Kind:      types.EventSystem,
		Content:   fmt.Sprintf("turn failed: %s", kind),
		Timestamp: time.Now().UTC(),
	})
	o.bus.Publish(event.Event{
		Type: event.TurnErrored,
		Data: event.TurnErroredData{SessionID: sessionID, Turn: turn, Kind: kind},
	})

	logging.Error().Err(err).Str("session", sessionID).Str("kind", string(kind)).Msg("turn failed")

	h.mu.Lock()
	h.sess.Turn = types.TurnIdle
	h.mu.Unlock()
}
