// Package routing selects a response strategy and system directive from
// conversational context before each provider invocation.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// Engine decides a routing strategy for a message history. Decide is a pure
// function: no I/O, no side effects, deterministic for identical history.
type Engine struct {
	cfg   types.RoutingConfig
	rules []rule
}

// rule is one strategy in precedence order: first match wins.
type rule struct {
	strategy types.Strategy
	matches  func(e *Engine, h *historyView) bool
}

// New creates a routing engine with the default strategy table.
func New(cfg types.RoutingConfig) *Engine {
	e := &Engine{cfg: cfg}
	e.rules = []rule{
		{types.StrategySummarizationAware, (*Engine).matchSummarizationAware},
		{types.StrategyToolHeavy, (*Engine).matchToolHeavy},
		{types.StrategyAnalytical, (*Engine).matchAnalytical},
		{types.StrategyFastConcise, func(*Engine, *historyView) bool { return true }},
	}
	return e
}

// Decide evaluates the strategy table over history and returns the decision
// for the upcoming provider invocation.
func (e *Engine) Decide(history []types.Message) types.RoutingDecision {
	view := newHistoryView(history)

	for _, r := range e.rules {
		if r.matches(e, view) {
			return types.RoutingDecision{
				Strategy:  r.strategy,
				Directive: buildDirective(r.strategy, view),
				Turn:      view.userTurns,
			}
		}
	}

	// The fallback rule always matches; unreachable.
	return types.RoutingDecision{Strategy: types.StrategyFastConcise, Turn: view.userTurns}
}

// historyView caches the derived features rules look at.
type historyView struct {
	userTurns  int
	latestUser string
	assistants []types.Message
	topics     []string
}

func newHistoryView(history []types.Message) *historyView {
	v := &historyView{}
	topicSet := make(map[string]bool)

	for _, msg := range history {
		switch msg.Role {
		case types.RoleUser:
			v.userTurns++
			v.latestUser = msg.Content
			for _, topic := range detectTopics(msg.Content) {
				topicSet[topic] = true
			}
		case types.RoleAssistant:
			v.assistants = append(v.assistants, msg)
		}
	}

	for topic := range topicSet {
		v.topics = append(v.topics, topic)
	}
	sort.Strings(v.topics)
	return v
}

func (e *Engine) matchSummarizationAware(h *historyView) bool {
	return h.userTurns > e.cfg.SummarizationTurns
}

// matchToolHeavy fires when the two most recent assistant turns each
// requested a tool call.
func (e *Engine) matchToolHeavy(h *historyView) bool {
	n := len(h.assistants)
	if n < 2 {
		return false
	}
	return len(h.assistants[n-1].ToolCalls) > 0 && len(h.assistants[n-2].ToolCalls) > 0
}

var analyticalKeywords = []string{"analyze", "explain", "why", "how", "compare", "evaluate"}

func (e *Engine) matchAnalytical(h *historyView) bool {
	if h.latestUser == "" {
		return false
	}
	if len(h.latestUser) > e.cfg.AnalyticalMinChars {
		return true
	}
	if strings.Count(h.latestUser, "?") >= 2 {
		return true
	}
	lower := strings.ToLower(h.latestUser)
	for _, kw := range analyticalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// knownTopics are the domain terms interpolated into directives.
var knownTopics = []string{"python", "async", "websocket", "llm", "streaming", "database"}

func detectTopics(content string) []string {
	lower := strings.ToLower(content)
	var found []string
	for _, topic := range knownTopics {
		if strings.Contains(lower, topic) {
			found = append(found, topic)
		}
	}
	return found
}

const basePrompt = `You are a helpful AI assistant in a real-time conversational system.
You have access to tools that can fetch knowledge and contextual data.
Use tools when appropriate to provide accurate, helpful responses.`

func buildDirective(strategy types.Strategy, h *historyView) string {
	var mode string

	switch strategy {
	case types.StrategyFastConcise:
		mode = `Current mode: Fast and concise responses.
- Provide direct, factual answers
- Use tools only when necessary
- Keep responses brief and focused`

	case types.StrategyAnalytical:
		mode = `Current mode: Analytical reasoning.
- Provide detailed explanations
- Break down complex topics
- Use tools to gather supporting information
- Show your reasoning process`

	case types.StrategySummarizationAware:
		mode = `Current mode: Summarization-aware.
- This conversation may be ending soon
- Provide balanced, comprehensive responses
- Help wrap up topics naturally
- Be mindful of conversation closure`

	case types.StrategyToolHeavy:
		mode = `Current mode: Tool-heavy interaction.
- Expect to use multiple tools
- Chain tool calls when appropriate
- Provide structured, tool-enhanced responses`
	}

	directive := basePrompt + "\n\n" + mode
	directive += fmt.Sprintf("\n\nConversation depth: %d user turns.", h.userTurns)
	if len(h.topics) > 0 {
		directive += fmt.Sprintf(" Topics so far: %s.", strings.Join(h.topics, ", "))
	}
	return directive
}
