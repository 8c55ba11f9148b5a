package types

// Config is the application configuration, merged from config files and
// environment overrides.
type Config struct {
	// Model selects the default provider/model, "provider/model" form
	// (e.g. "openai/gpt-4o").
	Model string `json:"model,omitempty"`

	Provider map[string]ProviderConfig `json:"provider,omitempty"`

	Server  ServerConfig  `json:"server,omitempty"`
	Routing RoutingConfig `json:"routing,omitempty"`
	Session SessionConfig `json:"session,omitempty"`
	Summary SummaryConfig `json:"summary,omitempty"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR, FATAL.
	LogLevel string `json:"logLevel,omitempty"`

	// DatabasePath is the sqlite file backing the durable event log.
	DatabasePath string `json:"databasePath,omitempty"`
}

// ProviderConfig configures one upstream model provider.
type ProviderConfig struct {
	APIKey      string  `json:"apiKey,omitempty"`
	BaseURL     string  `json:"baseURL,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port       int  `json:"port,omitempty"`
	EnableCORS bool `json:"enableCORS,omitempty"`
}

// RoutingConfig tunes strategy selection thresholds.
type RoutingConfig struct {
	// SummarizationTurns is the user-turn count past which the
	// summarization-aware strategy is selected. Turn count is monotonic,
	// so once crossed the strategy stays selected for the session.
	SummarizationTurns int `json:"summarizationTurns,omitempty"`

	// AnalyticalMinChars is the latest-user-turn length past which the
	// analytical strategy is selected.
	AnalyticalMinChars int `json:"analyticalMinChars,omitempty"`
}

// SessionConfig tunes per-session orchestration.
type SessionConfig struct {
	// MaxToolChain caps chained tool-call re-invocations per user turn.
	MaxToolChain int `json:"maxToolChain,omitempty"`
}

// SummaryConfig tunes the summarization pipeline.
type SummaryConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queueSize,omitempty"`
}
