// Package tool provides the tool catalog and executor for model-requested
// tool invocations.
package tool

import (
	"context"
	"encoding/json"
)

// Tool is one named capability the model may invoke: an identifier, a JSON
// Schema describing its arguments, and a synchronous invoke function.
type Tool interface {
	// ID returns the tool identifier.
	ID() string

	// Description returns the tool description shown to the model.
	Description() string

	// Parameters returns the JSON Schema for tool arguments.
	Parameters() json.RawMessage

	// Execute runs the tool. Arguments have already been validated against
	// Parameters when called through the registry.
	Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error)
}

// Context carries per-invocation session context to tools.
type Context struct {
	SessionID string
	UserID    string
	CallID    string
}

// Result is the output of a tool execution, delivered back to the model as
// a tool turn and to the client as a tool_result frame.
type Result struct {
	Payload json.RawMessage `json:"payload"`
}

// TextResult builds a Result from any JSON-marshalable payload.
func TextResult(v any) (*Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: data}, nil
}

// BaseTool is a function-backed Tool implementation.
type BaseTool struct {
	id          string
	description string
	parameters  json.RawMessage
	execute     func(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error)
}

// NewBaseTool creates a new function-backed tool.
func NewBaseTool(
	id, description string,
	params json.RawMessage,
	execute func(context.Context, json.RawMessage, *Context) (*Result, error),
) *BaseTool {
	return &BaseTool{
		id:          id,
		description: description,
		parameters:  params,
		execute:     execute,
	}
}

func (t *BaseTool) ID() string                  { return t.id }
func (t *BaseTool) Description() string         { return t.description }
func (t *BaseTool) Parameters() json.RawMessage { return t.parameters }

func (t *BaseTool) Execute(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
	return t.execute(ctx, args, toolCtx)
}
