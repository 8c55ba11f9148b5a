package types

// Strategy is the routing strategy tag selected before each provider
// invocation.
type Strategy string

const (
	StrategySummarizationAware Strategy = "summarization_aware"
	StrategyToolHeavy          Strategy = "tool_heavy"
	StrategyAnalytical         Strategy = "analytical"
	StrategyFastConcise        Strategy = "fast_concise"
)

// RoutingDecision is the pure-function output of the routing engine: the
// strategy tag plus the generated system directive for one provider
// invocation. Never persisted as mutable state.
type RoutingDecision struct {
	Strategy  Strategy `json:"strategy"`
	Directive string   `json:"directive"`
	Turn      int      `json:"turn"`
}
