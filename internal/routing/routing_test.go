package routing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

func testConfig() types.RoutingConfig {
	return types.RoutingConfig{
		SummarizationTurns: 10,
		AnalyticalMinChars: 280,
	}
}

func userMsg(content string) types.Message {
	return types.Message{Role: types.RoleUser, Content: content}
}

func assistantMsg(content string) types.Message {
	return types.Message{Role: types.RoleAssistant, Content: content}
}

func assistantToolMsg(name string) types.Message {
	return types.Message{
		Role: types.RoleAssistant,
		ToolCalls: []types.ToolCall{
			{ID: "call_1", Name: name, Arguments: json.RawMessage(`{}`)},
		},
	}
}

func TestDecideFastConciseDefault(t *testing.T) {
	e := New(testConfig())

	d := e.Decide([]types.Message{userMsg("what time is it")})
	assert.Equal(t, types.StrategyFastConcise, d.Strategy)
	assert.Equal(t, 1, d.Turn)
	assert.NotEmpty(t, d.Directive)
}

func TestDecideAnalyticalKeywords(t *testing.T) {
	e := New(testConfig())

	for _, kw := range []string{"analyze", "explain", "why", "how", "compare", "evaluate"} {
		d := e.Decide([]types.Message{userMsg("please " + kw + " this for me")})
		assert.Equal(t, types.StrategyAnalytical, d.Strategy, "keyword %q", kw)
	}
}

func TestDecideAnalyticalLongMessage(t *testing.T) {
	e := New(testConfig())

	long := strings.Repeat("background detail ", 20)
	require.Greater(t, len(long), 280)

	d := e.Decide([]types.Message{userMsg(long)})
	assert.Equal(t, types.StrategyAnalytical, d.Strategy)
}

func TestDecideAnalyticalMultiPartQuestion(t *testing.T) {
	e := New(testConfig())

	d := e.Decide([]types.Message{userMsg("Is it fast? Is it safe?")})
	assert.Equal(t, types.StrategyAnalytical, d.Strategy)
}

func TestDecideAnalyticalLooksAtLatestUserTurnOnly(t *testing.T) {
	e := New(testConfig())

	history := []types.Message{
		userMsg("explain goroutines in depth"),
		assistantMsg("sure"),
		userMsg("thanks"),
	}
	d := e.Decide(history)
	assert.Equal(t, types.StrategyFastConcise, d.Strategy)
}

func TestDecideToolHeavy(t *testing.T) {
	e := New(testConfig())

	history := []types.Message{
		userMsg("look it up"),
		assistantToolMsg("fetch_internal_knowledge"),
		userMsg("and again"),
		assistantToolMsg("lookup_contextual_data"),
		userMsg("one more"),
	}
	d := e.Decide(history)
	assert.Equal(t, types.StrategyToolHeavy, d.Strategy)
}

func TestDecideToolHeavyNeedsTwoConsecutive(t *testing.T) {
	e := New(testConfig())

	history := []types.Message{
		userMsg("look it up"),
		assistantToolMsg("fetch_internal_knowledge"),
		userMsg("thanks"),
		assistantMsg("you're welcome"),
		userMsg("hi"),
	}
	d := e.Decide(history)
	assert.Equal(t, types.StrategyFastConcise, d.Strategy)
}

func TestDecideSummarizationAwareThreshold(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)

	var history []types.Message
	for i := 0; i <= cfg.SummarizationTurns; i++ {
		history = append(history, userMsg("hi"), assistantMsg("hello"))
	}

	d := e.Decide(history)
	assert.Equal(t, types.StrategySummarizationAware, d.Strategy)
	assert.Equal(t, cfg.SummarizationTurns+1, d.Turn)
}

// Once the turn threshold is crossed the strategy stays summarization-aware
// no matter what later turns contain.
func TestDecideSummarizationAwareMonotonic(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)

	var history []types.Message
	for i := 0; i <= cfg.SummarizationTurns; i++ {
		history = append(history, userMsg("hi"), assistantMsg("hello"))
	}

	// Turns that would otherwise select tool-heavy or analytical.
	history = append(history,
		userMsg("explain everything"),
		assistantToolMsg("fetch_internal_knowledge"),
		userMsg("analyze it"),
		assistantToolMsg("lookup_contextual_data"),
		userMsg("why? how?"),
	)

	d := e.Decide(history)
	assert.Equal(t, types.StrategySummarizationAware, d.Strategy)
}

func TestToolHeavyPrecedesAnalytical(t *testing.T) {
	e := New(testConfig())

	history := []types.Message{
		userMsg("start"),
		assistantToolMsg("fetch_internal_knowledge"),
		userMsg("more"),
		assistantToolMsg("fetch_internal_knowledge"),
		userMsg("now explain why this works"),
	}
	d := e.Decide(history)
	assert.Equal(t, types.StrategyToolHeavy, d.Strategy)
}

func TestDecideDeterministic(t *testing.T) {
	e := New(testConfig())

	history := []types.Message{
		userMsg("tell me about Python async and websocket streaming"),
		assistantMsg("sure"),
		userMsg("explain more"),
	}

	first := e.Decide(history)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Decide(history))
	}
}

func TestDirectiveInterpolation(t *testing.T) {
	e := New(testConfig())

	history := []types.Message{
		userMsg("tell me about Python websockets"),
		assistantMsg("sure"),
		userMsg("explain the LLM part"),
	}
	d := e.Decide(history)

	assert.Contains(t, d.Directive, "2 user turns")
	assert.Contains(t, d.Directive, "python")
	assert.Contains(t, d.Directive, "websocket")
	assert.Contains(t, d.Directive, "llm")
}

func TestDecideEmptyHistory(t *testing.T) {
	e := New(testConfig())

	d := e.Decide(nil)
	assert.Equal(t, types.StrategyFastConcise, d.Strategy)
	assert.Equal(t, 0, d.Turn)
}
