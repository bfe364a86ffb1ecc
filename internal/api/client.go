// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL matches the server's default listen address.
	DefaultBaseURL = "http://127.0.0.1:8787"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 15 * time.Second

	// RequestIDHeader is sent with every request for log correlation.
	RequestIDHeader = "X-Request-Id"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the streamchat HTTP API. It is safe for concurrent use.
type Client struct {
	baseURL string
	logger  *slog.Logger

	httpClient *http.Client

	// streamClient has no overall timeout; chat streams are bounded by ctx.
	streamClient *http.Client
}

// NewClient creates a Client. Empty fields take defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		logger:       cfg.Logger,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{},
	}
}

// BaseURL returns the server URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds a request with a JSON body (if any) and a fresh
// request id.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// do sends req and returns the response if its status is 2xx.
func (c *Client) do(hc *http.Client, op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("API_REQUEST_FAILED", "op", op, "error", err)
		return nil, &NetworkError{Op: op, Err: err}
	}

	c.logger.Debug("API_REQUEST",
		"op", op,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(RequestIDHeader),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// doJSON sends a request and decodes a JSON reply into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	resp, err := c.do(c.httpClient, op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// ListMessages returns the full conversation ordered by id.
func (c *Client) ListMessages(ctx context.Context) ([]model.Message, error) {
	var msgs []model.Message
	if err := c.doJSON(ctx, "list messages", http.MethodGet, "/api/messages", nil, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// CreateMessage stores a message without running the model.
func (c *Client) CreateMessage(ctx context.Context, role model.Role, content string) (model.Message, error) {
	body := map[string]string{"role": string(role), "content": content}

	var msg model.Message
	if err := c.doJSON(ctx, "create message", http.MethodPost, "/api/messages", body, &msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

// ClearMessages deletes the whole conversation.
func (c *Client) ClearMessages(ctx context.Context) error {
	return c.doJSON(ctx, "clear messages", http.MethodPost, "/api/messages/clear", nil, nil)
}

// =============================================================================
// CHAT
// =============================================================================

// OpenChat sends a message and returns the streaming reply body. The caller
// must close it. Cancelling ctx aborts the read.
func (c *Client) OpenChat(ctx context.Context, message string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat", map[string]string{"message": message})
	if err != nil {
		return nil, &NetworkError{Op: "chat", Err: err}
	}

	resp, err := c.do(c.streamClient, "chat", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is the body of GET /health.
type Health struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Provider       string `json:"provider"`
	ProviderStatus string `json:"provider_status"`
	Messages       int    `json:"messages"`
}

// Health reports server and provider status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, &h)
	return h, err
}
