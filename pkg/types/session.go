// Package types provides the core data types for the streamchat server.
package types

import (
	"encoding/json"
	"time"
)

// Phase is the lifecycle phase of a session.
type Phase string

const (
	PhaseActive  Phase = "active"
	PhaseClosing Phase = "closing"
	PhaseClosed  Phase = "closed"
)

// TurnState is the per-turn orchestration state of a session.
type TurnState string

const (
	TurnIdle        TurnState = "idle"
	TurnStreaming   TurnState = "streaming"
	TurnToolPending TurnState = "tool_pending"
	TurnErrored     TurnState = "errored"
)

// Session is the authoritative in-memory record for one conversation.
// It is exclusively owned by the orchestrator goroutine driving it; the
// summarization pipeline only ever sees the durable log, never this object.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userID"`
	StartedAt time.Time `json:"startedAt"`
	Phase     Phase     `json:"phase"`
	Turn      TurnState `json:"turn"`

	// History is the ordered, append-only message history. Insertion order
	// is the prompt order seen by the provider.
	History []Message `json:"history"`

	// UserTurns counts user messages appended so far.
	UserTurns int `json:"userTurns"`

	// ToolCalls counts resolved tool invocations across the session.
	ToolCalls int `json:"toolCalls"`
}

// Role identifies the author of a message turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role-tagged turn in the conversation history.
// Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls holds the calls an assistant turn requested, if any.
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`

	// ToolCallID links a tool turn to the call it answers.
	ToolCallID string `json:"toolCallID,omitempty"`
}

// ToolCall is a provider-requested tool invocation. The ID is the
// correlation identifier, unique within the session; each call resolves
// exactly once and is never retried automatically.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
