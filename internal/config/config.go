// Package config loads application configuration from JSONC files and
// environment variables.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// Defaults for tunables that are zero when unset.
const (
	DefaultPort               = 8080
	DefaultSummarizationTurns = 10
	DefaultAnalyticalMinChars = 280
	DefaultMaxToolChain       = 8
	DefaultSummaryWorkers     = 2
	DefaultSummaryQueueSize   = 256
	DefaultDatabasePath       = "streamchat.db"
)

// Load loads configuration from multiple sources (priority order):
//  1. Global config (~/.config/streamchat/)
//  2. Project config (./streamchat.json[c])
//  3. STREAMCHAT_CONFIG file
//  4. STREAMCHAT_CONFIG_CONTENT inline JSON
//  5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return
		}
		if loadFile(path, config) == nil {
			loaded[absPath] = true
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		globalDir := filepath.Join(home, ".config", "streamchat")
		loadOnce(filepath.Join(globalDir, "streamchat.json"))
		loadOnce(filepath.Join(globalDir, "streamchat.jsonc"))
	}

	if directory != "" {
		loadOnce(filepath.Join(directory, "streamchat.json"))
		loadOnce(filepath.Join(directory, "streamchat.jsonc"))
	}

	if path := os.Getenv("STREAMCHAT_CONFIG"); path != "" {
		loadOnce(path)
	}

	if content := os.Getenv("STREAMCHAT_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		if err := json.Unmarshal(interpolate([]byte(content)), &inline); err == nil {
			merge(config, &inline)
		}
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

// loadFile loads a single JSONC config file with env interpolation.
func loadFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	merge(config, &fileConfig)
	return nil
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// merge overlays src onto dst, src winning on conflicts.
func merge(dst, src *types.Config) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.DatabasePath != "" {
		dst.DatabasePath = src.DatabasePath
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.EnableCORS {
		dst.Server.EnableCORS = true
	}
	if src.Routing.SummarizationTurns != 0 {
		dst.Routing.SummarizationTurns = src.Routing.SummarizationTurns
	}
	if src.Routing.AnalyticalMinChars != 0 {
		dst.Routing.AnalyticalMinChars = src.Routing.AnalyticalMinChars
	}
	if src.Session.MaxToolChain != 0 {
		dst.Session.MaxToolChain = src.Session.MaxToolChain
	}
	if src.Summary.Workers != 0 {
		dst.Summary.Workers = src.Summary.Workers
	}
	if src.Summary.QueueSize != 0 {
		dst.Summary.QueueSize = src.Summary.QueueSize
	}
	for name, pc := range src.Provider {
		existing := dst.Provider[name]
		if pc.APIKey != "" {
			existing.APIKey = pc.APIKey
		}
		if pc.BaseURL != "" {
			existing.BaseURL = pc.BaseURL
		}
		if pc.Model != "" {
			existing.Model = pc.Model
		}
		if pc.MaxTokens != 0 {
			existing.MaxTokens = pc.MaxTokens
		}
		if pc.Temperature != 0 {
			existing.Temperature = pc.Temperature
		}
		dst.Provider[name] = existing
	}
}

// applyEnvOverrides applies environment variables, which win over files.
func applyEnvOverrides(config *types.Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		pc := config.Provider["openai"]
		pc.APIKey = key
		config.Provider["openai"] = pc
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		pc := config.Provider["anthropic"]
		pc.APIKey = key
		config.Provider["anthropic"] = pc
	}
	if model := os.Getenv("STREAMCHAT_MODEL"); model != "" {
		config.Model = model
	}
	if level := os.Getenv("STREAMCHAT_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if db := os.Getenv("STREAMCHAT_DB"); db != "" {
		config.DatabasePath = db
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			config.Server.Port = n
		}
	}
}

// applyDefaults fills zero values with defaults.
func applyDefaults(config *types.Config) {
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Routing.SummarizationTurns == 0 {
		config.Routing.SummarizationTurns = DefaultSummarizationTurns
	}
	if config.Routing.AnalyticalMinChars == 0 {
		config.Routing.AnalyticalMinChars = DefaultAnalyticalMinChars
	}
	if config.Session.MaxToolChain == 0 {
		config.Session.MaxToolChain = DefaultMaxToolChain
	}
	if config.Summary.Workers == 0 {
		config.Summary.Workers = DefaultSummaryWorkers
	}
	if config.Summary.QueueSize == 0 {
		config.Summary.QueueSize = DefaultSummaryQueueSize
	}
	if config.DatabasePath == "" {
		config.DatabasePath = DefaultDatabasePath
	}
}
