// Package provider provides the LLM provider abstraction using the Eino
// framework.
package provider

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Provider is the upstream model capability consumed by the orchestrator
// (streaming) and the summarization pipeline (single completion).
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Stream starts a streaming completion. Errors are classified into the
	// session error taxonomy before being returned.
	Stream(ctx context.Context, req *Request) (Stream, error)

	// Complete runs one non-streaming completion and returns the full text.
	Complete(ctx context.Context, directive, prompt string) (string, error)
}

// Request is one provider invocation: the routed system directive, the full
// message history in delivery order, and the tool catalog.
type Request struct {
	Directive   string
	Messages    []*schema.Message
	Tools       []*schema.ToolInfo
	MaxTokens   int
	Temperature float64
}

// Stream is a lazy sequence of model output chunks. Recv returns io.EOF when
// the provider reports completion.
type Stream interface {
	Recv() (*schema.Message, error)
	Close()
}

// einoStream adapts an Eino stream reader to Stream.
type einoStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewEinoStream wraps an Eino stream reader.
func NewEinoStream(reader *schema.StreamReader[*schema.Message]) Stream {
	return &einoStream{reader: reader}
}

func (s *einoStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

func (s *einoStream) Close() {
	s.reader.Close()
}
