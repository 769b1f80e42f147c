package main

import (
	"fmt"

	"github.com/torosent/promptfire/internal/adapter"
	"github.com/torosent/promptfire/internal/config"
)

// newClientFromConfig creates the backend client for the configured target.
func newClientFromConfig(cfg *config.Config, seed int64) (adapter.Client, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		return newOpenAIClient(cfg.Model, cfg.Timeout)
	case config.BackendOllama:
		return newOllamaClient(cfg.OllamaURL, cfg.Model, cfg.Timeout), nil
	case config.BackendMock:
		return newMockClient(cfg.Model, cfg.MockLatency, cfg.MockErrorRate, seed), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
