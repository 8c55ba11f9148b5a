package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced on a session's event stream or at
// the registry boundary.
type ErrorKind string

const (
	// Provider-level kinds.
	ErrKindRateLimited         ErrorKind = "rate_limited"
	ErrKindQuotaExceeded       ErrorKind = "quota_exceeded"
	ErrKindProviderUnavailable ErrorKind = "provider_unavailable"

	// Tool-boundary kinds; contained, reported back to the model.
	ErrKindUnknownTool         ErrorKind = "unknown_tool"
	ErrKindInvalidArguments    ErrorKind = "invalid_tool_arguments"
	ErrKindToolExecutionFailed ErrorKind = "tool_execution_failed"

	// Turn-level kinds.
	ErrKindToolLoopExceeded ErrorKind = "tool_loop_exceeded"
	ErrKindAborted          ErrorKind = "aborted"
	ErrKindInternal         ErrorKind = "internal"
)

// Registry-level sentinels, reported synchronously to the caller.
var (
	ErrDuplicateSession = errors.New("session already open")
	ErrSessionNotFound  = errors.New("session not found")
)

// SessionError carries a classified error across the orchestrator boundary.
type SessionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *SessionError) Unwrap() error { return e.Err }

// NewSessionError wraps err with a classified kind.
func NewSessionError(kind ErrorKind, err error) *SessionError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &SessionError{Kind: kind, Message: msg, Err: err}
}

// Retryable reports whether the kind is worth retrying within the turn.
func (e *SessionError) Retryable() bool {
	return e.Kind == ErrKindProviderUnavailable || e.Kind == ErrKindRateLimited
}

// ErrorKindOf extracts the classified kind from err, defaulting to internal.
func ErrorKindOf(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrKindInternal
}

// ToolError is a failure contained at the tool boundary. It is converted to
// a tool_result payload so the conversation continues; it never terminates
// the turn.
type ToolError struct {
	Kind ErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
