package event

import "github.com/streamchat-ai/streamchat/pkg/types"

// SessionOpenedData is the data for session.opened events.
type SessionOpenedData struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
}

// SessionClosedData is the data for session.closed events.
type SessionClosedData struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
}

// TurnStartedData is the data for turn.started events.
type TurnStartedData struct {
	SessionID string         `json:"sessionID"`
	Turn      int            `json:"turn"`
	Strategy  types.Strategy `json:"strategy"`
}

// TurnCompletedData is the data for turn.completed events.
type TurnCompletedData struct {
	SessionID string `json:"sessionID"`
	Turn      int    `json:"turn"`
	ToolCalls int    `json:"toolCalls"`
}

// TurnErroredData is the data for turn.errored events.
type TurnErroredData struct {
	SessionID string          `json:"sessionID"`
	Turn      int             `json:"turn"`
	Kind      types.ErrorKind `json:"kind"`
}

// SummaryReadyData is the data for summary.ready events.
type SummaryReadyData struct {
	Summary *types.SessionSummary `json:"summary"`
}

// SummaryFailedData is the data for summary.failed events.
type SummaryFailedData struct {
	SessionID string `json:"sessionID"`
	Reason    string `json:"reason"`
}
