// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/llm"
)

const providerName = "ollama"

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Explicit IPv4 avoids IPv6 localhost resolution issues.
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// Model to use for chat (default: llama3.2)
	Model string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:11434",
		Timeout: 30 * time.Second,
		Model:   "llama3.2",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client

	// streamClient has no overall timeout; streams are bounded by context.
	streamClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}

	return &Client{
		config:       config,
		httpClient:   &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{},
	}
}

// Name implements llm.Provider.
func (c *Client) Name() string {
	return providerName
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}

func newError(typ llm.ErrorType, msg string, cause error) *llm.ProviderError {
	return &llm.ProviderError{Provider: providerName, Type: typ, Message: msg, Cause: cause}
}

// transportError classifies a failed Do call.
func transportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return newError(llm.ErrTypeTimeout, "request timed out", err)
	default:
		return newError(llm.ErrTypeNotRunning, "Ollama is not running", err)
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Ping verifies that Ollama is reachable and running.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return newError(llm.ErrTypeConnection, "failed to create request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newError(llm.ErrTypeConnection, "unexpected status from Ollama: "+resp.Status, nil)
	}
	return nil
}

// ListModels retrieves all available models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, newError(llm.ErrTypeConnection, "failed to create request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newError(llm.ErrTypeInvalidResponse, "failed to list models: "+resp.Status, nil)
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, newError(llm.ErrTypeInvalidResponse, "failed to decode response", err)
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream sends a streaming chat request and calls the callback for each
// chunk in the order received. Returns when the done marker arrives or an
// error occurs.
func (c *Client) ChatStream(ctx context.Context, messages []Message, callback StreamCallback) error {
	body, err := json.Marshal(ChatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return newError(llm.ErrTypeInvalidResponse, "failed to marshal request", err)
	}

	// TLS not required: Ollama runs locally over HTTP.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return newError(llm.ErrTypeConnection, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return newError(llm.ErrTypeModelNotFound, "model not found: "+c.config.Model, nil)
	}
	if resp.StatusCode != http.StatusOK {
		var ollamaErr OllamaError
		if err := json.NewDecoder(resp.Body).Decode(&ollamaErr); err == nil && ollamaErr.Error != "" {
			return newError(llm.ErrTypeInvalidResponse, ollamaErr.Error, nil)
		}
		return newError(llm.ErrTypeInvalidResponse, "stream request failed: "+resp.Status, nil)
	}

	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// StreamChat implements llm.Provider.
func (c *Client) StreamChat(ctx context.Context, messages []llm.Message, onFragment llm.FragmentFunc) error {
	converted := make([]Message, len(messages))
	for i, m := range messages {
		converted[i] = Message{Role: m.Role, Content: m.Content}
	}

	var callbackErr error
	err := c.ChatStream(ctx, converted, func(chunk StreamChunk) error {
		if chunk.Content == "" {
			return nil
		}
		if err := onFragment(chunk.Content); err != nil {
			callbackErr = err
			return err
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case callbackErr != nil && errors.Is(err, callbackErr):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	if _, ok := llm.IsProviderError(err); ok {
		return err
	}
	return newError(llm.ErrTypeInvalidResponse, "stream failed", err)
}
