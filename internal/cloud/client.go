// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/llm"
)

const providerName = "openai"

// Configuration constants.
const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when none is configured.
	DefaultModel = "gpt-4o"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// ErrNotConfigured indicates the API key is not set.
var ErrNotConfigured = errors.New("API key not configured")

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	apiKey  string
	baseURL string
	model   string

	httpClient   *http.Client
	streamClient *http.Client
	logger       *slog.Logger
}

// NewClient creates a client, filling in defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		// Streaming requests are bounded by context, not a client timeout.
		streamClient: &http.Client{},
		logger:       cfg.Logger,
	}
}

// Name implements llm.Provider.
func (c *Client) Name() string {
	return providerName
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.model
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns the first 8 hex chars of the key's SHA-256.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

func newError(typ llm.ErrorType, msg string, cause error) *llm.ProviderError {
	return &llm.ProviderError{Provider: providerName, Type: typ, Message: msg, Cause: cause}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "streamchat")
}

// Ping checks that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if !c.IsConfigured() {
		return newError(llm.ErrTypeAuth, "not configured", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return newError(llm.ErrTypeConnection, "failed to create request", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newError(llm.ErrTypeConnection, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.handleErrorResponse(resp.StatusCode, body)
	}
	return nil
}

// handleErrorResponse maps an HTTP error reply to a ProviderError.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	msg := fmt.Sprintf("HTTP %d", statusCode)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, apiErr.Error.Message)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(llm.ErrTypeAuth, "authentication failed ("+msg+")", nil)
	case http.StatusNotFound:
		return newError(llm.ErrTypeModelNotFound, "model not found ("+msg+")", nil)
	case http.StatusTooManyRequests:
		return newError(llm.ErrTypeRateLimited, "rate limited ("+msg+")", nil)
	default:
		return newError(llm.ErrTypeInvalidResponse, msg, nil)
	}
}
