package types

import (
	"encoding/json"
	"time"
)

// EventKind is the type tag of a durable log record.
type EventKind string

const (
	EventUserMessage EventKind = "user_message"
	EventAIToken     EventKind = "ai_token"
	EventToolCall    EventKind = "tool_call"
	EventToolResult  EventKind = "tool_result"
	EventSystem      EventKind = "system_event"
)

// EventRecord is one append-only entry in the durable log. Ordering by
// (SessionID, Timestamp, sequence) reconstructs the transcript.
type EventRecord struct {
	SessionID string    `json:"sessionID"`
	Kind      EventKind `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary is the durable post-session summary, written at most once
// per session and possibly absent when the pipeline fails.
type SessionSummary struct {
	SessionID       string    `json:"sessionID"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	Summary         string    `json:"finalSummary"`
}

// ClientEventType identifies a client-facing stream frame.
type ClientEventType string

const (
	ClientToken      ClientEventType = "token"
	ClientToolCall   ClientEventType = "tool_call"
	ClientToolResult ClientEventType = "tool_result"
	ClientDone       ClientEventType = "done"
	ClientError      ClientEventType = "error"
)

// ClientEvent is one logical server-to-client frame, serialized as a single
// JSON object on the session's outbound channel.
type ClientEvent struct {
	Type      ClientEventType `json:"type"`
	Content   string          `json:"content,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Kind      ErrorKind       `json:"kind,omitempty"`
}

// InboundMessage is the client-to-server frame on the duplex channel.
type InboundMessage struct {
	Message string `json:"message"`
}
