package session

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// toEinoMessages converts session history to the Eino wire form, preserving
// delivery order.
func toEinoMessages(history []types.Message) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))

	for _, msg := range history {
		switch msg.Role {
		case types.RoleUser:
			messages = append(messages, &schema.Message{
				Role:    schema.User,
				Content: msg.Content,
			})

		case types.RoleAssistant:
			em := &schema.Message{
				Role:    schema.Assistant,
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				em.ToolCalls = append(em.ToolCalls, schema.ToolCall{
					ID: tc.ID,
					Function: schema.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				})
			}
			messages = append(messages, em)

		case types.RoleTool:
			messages = append(messages, &schema.Message{
				Role:       schema.Tool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}

	return messages
}

// fromEinoAssistant converts a concatenated assistant message back to a
// history turn.
func fromEinoAssistant(msg *schema.Message) types.Message {
	out := types.Message{
		Role:    types.RoleAssistant,
		Content: msg.Content,
	}

	for _, tc := range msg.ToolCalls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}

	return out
}
