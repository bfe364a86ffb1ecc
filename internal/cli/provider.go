// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/cloud"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/llm"
	"github.com/jeranaias/streamchat/internal/ollama"
)

// NewProvider builds the model backend selected by cfg.Kind, wrapped with
// the configured idle timeout.
func NewProvider(cfg config.ProviderConfig, logger *slog.Logger) (llm.Provider, error) {
	var p llm.Provider

	switch cfg.Kind {
	case config.ProviderOllama:
		p = newOllamaClient(cfg)

	case config.ProviderOpenAI:
		client := cloud.NewClient(cloud.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Logger:  logger,
		})
		if !client.IsConfigured() {
			return nil, &ConfigError{Err: fmt.Errorf("provider openai: %w (set OPENAI_API_KEY or provider.openai.api_key)", cloud.ErrNotConfigured)}
		}
		p = client

	case config.ProviderEcho:
		p = &llm.Echo{ChunkBytes: cfg.Echo.ChunkBytes, Delay: cfg.Echo.Delay()}

	default:
		return nil, &UsageError{
			Field:   "provider",
			Value:   cfg.Kind,
			Reason:  "unknown provider",
			Example: "one of: ollama, openai, echo",
		}
	}

	return llm.WithIdleTimeout(p, cfg.IdleTimeout()), nil
}

// providerModel returns the model name of the selected backend, for logs.
func providerModel(cfg config.ProviderConfig) string {
	switch cfg.Kind {
	case config.ProviderOllama:
		return cfg.Ollama.Model
	case config.ProviderOpenAI:
		return cfg.OpenAI.Model
	default:
		return ""
	}
}

// modelCheckTimeout bounds the startup model lookup.
const modelCheckTimeout = 3 * time.Second

func newOllamaClient(cfg config.ProviderConfig) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL: cfg.Ollama.URL,
		Model:   cfg.Ollama.Model,
	})
}

// modelLister lists the models a backend can serve.
type modelLister interface {
	ListModels(ctx context.Context) ([]ollama.ModelInfo, error)
}

// checkModel logs a warning when want is not among the models the backend
// has pulled. It reports whether want was found. An unreachable backend is
// not an error here; the health endpoint reports it.
func checkModel(ctx context.Context, lister modelLister, want string, logger *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		logger.Warn("PROVIDER_MODELS_UNAVAILABLE", "error", err)
		return false
	}
	names := make([]string, len(models))
	for i, m := range models {
		// "llama3.2" matches "llama3.2:latest".
		if m.Name == want || strings.TrimSuffix(m.Name, ":latest") == want {
			logger.Debug("PROVIDER_MODEL_FOUND", "model", m.Name, "size", m.Size)
			return true
		}
		names[i] = m.Name
	}
	logger.Warn("PROVIDER_MODEL_MISSING", "model", want, "available", strings.Join(names, ","))
	return false
}
