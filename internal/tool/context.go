package tool

import (
	"context"
	"encoding/json"
)

const contextSchema = `{
	"type": "object",
	"properties": {},
	"required": []
}`

// contextResult is the payload returned to the model.
type contextResult struct {
	Tool      string         `json:"tool"`
	SessionID string         `json:"sessionID"`
	Result    contextPayload `json:"result"`
}

type contextPayload struct {
	UserPreferences map[string]string `json:"user_preferences"`
	RelatedTopics   []string          `json:"related_topics"`
	SessionContext  string            `json:"session_context"`
}

// NewContextTool returns the contextual data lookup tool. The session
// identifier comes from the invocation context, not from model-supplied
// arguments.
func NewContextTool() Tool {
	return NewBaseTool(
		"lookup_contextual_data",
		"Look up contextual information related to the current session, such as user preferences or session history. Use this to personalize responses.",
		json.RawMessage(contextSchema),
		func(ctx context.Context, args json.RawMessage, toolCtx *Context) (*Result, error) {
			sessionID := ""
			if toolCtx != nil {
				sessionID = toolCtx.SessionID
			}

			return TextResult(contextResult{
				Tool:      "lookup_contextual_data",
				SessionID: sessionID,
				Result: contextPayload{
					UserPreferences: map[string]string{
						"response_style": "technical",
						"verbosity":      "moderate",
					},
					RelatedTopics:  []string{"async programming", "real-time systems"},
					SessionContext: "Active conversation in progress",
				},
			})
		},
	)
}
