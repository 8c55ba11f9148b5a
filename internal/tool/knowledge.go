package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const knowledgeSchema = `{
	"type": "object",
	"properties": {
		"topic": {
			"type": "string",
			"description": "The topic or concept to look up in the knowledge base"
		}
	},
	"required": ["topic"]
}`

// knowledgeBase is a canned corpus standing in for a real knowledge backend.
var knowledgeBase = map[string]string{
	"python":    "Python is a high-level programming language known for its simplicity and readability.",
	"async":     "Asynchronous programming allows concurrent execution without blocking operations.",
	"websocket": "WebSockets provide full-duplex communication channels over a single TCP connection.",
	"llm":       "Large Language Models are AI systems trained on vast text corpora to understand and generate human-like text.",
}

// knowledgeResult is the payload returned to the model.
type knowledgeResult struct {
	Tool       string  `json:"tool"`
	Topic      string  `json:"topic"`
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
}

// NewKnowledgeTool returns the internal knowledge lookup tool.
func NewKnowledgeTool() Tool {
	return NewBaseTool(
		"fetch_internal_knowledge",
		"Fetch information from the internal knowledge base about a specific topic. Use this when you need factual information or explanations about technical concepts.",
		json.RawMessage(knowledgeSchema),
		func(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
			var input struct {
				Topic string `json:"topic"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}

			topic := strings.ToLower(strings.TrimSpace(input.Topic))
			entry, ok := knowledgeBase[topic]
			confidence := 0.85
			if !ok {
				entry = fmt.Sprintf("No specific knowledge found for %q. General information: this is a simulated knowledge base lookup.", input.Topic)
				confidence = 0.5
			}

			return TextResult(knowledgeResult{
				Tool:       "fetch_internal_knowledge",
				Topic:      input.Topic,
				Result:     entry,
				Confidence: confidence,
			})
		},
	)
}
