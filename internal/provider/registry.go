package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/streamchat-ai/streamchat/internal/logging"
	"github.com/streamchat-ai/streamchat/pkg/types"
)

// Registry manages all available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defaultID string
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry. The first registered provider
// becomes the default.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.providers) == 0 {
		r.defaultID = p.ID()
	}
	r.providers[p.ID()] = p
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return p, nil
}

// Default returns the default provider.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultID == "" {
		return nil, fmt.Errorf("no providers configured")
	}
	return r.providers[r.defaultID], nil
}

// SetDefault picks the default provider by ID.
func (r *Registry) SetDefault(providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[providerID]; !ok {
		return fmt.Errorf("provider not found: %s", providerID)
	}
	r.defaultID = providerID
	return nil
}

// List returns all registered providers.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	return providers
}

// Initialize builds a registry from configuration. Providers whose
// credentials are missing are skipped with a warning so a partially
// configured install still serves the providers it can.
func Initialize(ctx context.Context, cfg *types.Config) (*Registry, error) {
	registry := NewRegistry()

	for name, pc := range cfg.Provider {
		var (
			p   Provider
			err error
		)
		switch name {
		case "openai":
			p, err = NewOpenAIProvider(ctx, &OpenAIConfig{
				APIKey:      pc.APIKey,
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				MaxTokens:   pc.MaxTokens,
				Temperature: pc.Temperature,
			})
		case "anthropic":
			p, err = NewAnthropicProvider(ctx, &AnthropicConfig{
				APIKey:      pc.APIKey,
				BaseURL:     pc.BaseURL,
				Model:       pc.Model,
				MaxTokens:   pc.MaxTokens,
				Temperature: pc.Temperature,
			})
		default:
			logging.Warn().Str("provider", name).Msg("unknown provider in config, skipping")
			continue
		}
		if err != nil {
			logging.Warn().Err(err).Str("provider", name).Msg("failed to initialize provider")
			continue
		}
		registry.Register(p)
	}

	if len(registry.List()) == 0 {
		return registry, fmt.Errorf("no providers could be initialized")
	}

	// "provider/model" selects the default.
	if cfg.Model != "" {
		if providerID, _, ok := strings.Cut(cfg.Model, "/"); ok {
			if err := registry.SetDefault(providerID); err != nil {
				logging.Warn().Err(err).Str("model", cfg.Model).Msg("configured default provider unavailable")
			}
		}
	}

	return registry, nil
}
