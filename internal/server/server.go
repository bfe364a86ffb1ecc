// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/streamchat/internal/llm"
	"github.com/jeranaias/streamchat/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize is the default request body limit (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the API version reported by /health.
	Version = "0.3.0"

	// internalErrorMessage is the only detail sent for server-side failures.
	internalErrorMessage = "Internal server error"

	// persistTimeout bounds the assistant write after the client may be gone.
	persistTimeout = 10 * time.Second

	// previewRunes limits message text in debug logs.
	previewRunes = 48
)

// ============================================================================
// DEPENDENCIES
// ============================================================================

// MessageStore is the persistence the server needs.
type MessageStore interface {
	List(ctx context.Context) ([]model.Message, error)
	Create(ctx context.Context, role model.Role, content string) (model.Message, error)
	Clear(ctx context.Context) error
}

// counter is implemented by stores that can count cheaply.
type counter interface {
	Count(ctx context.Context) (int, error)
}

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr         string
	SystemPrompt string

	ReadTimeout time.Duration
	// WriteTimeout bounds non-streaming replies. Streaming replies extend
	// their write deadline by this much on every fragment.
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxBodyBytes int64

	// RateLimit is requests per minute per client IP. 0 disables it.
	RateLimit int

	CORSOrigins []string

	Logger *slog.Logger
}

// DefaultOptions returns the default server options.
func DefaultOptions() Options {
	return Options{
		Addr:         DefaultAddr,
		SystemPrompt: llm.DefaultSystemPrompt,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		MaxBodyBytes: MaxRequestBodySize,
		RateLimit:    120,
		CORSOrigins:  DefaultCORSConfig().AllowedOrigins,
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the chat HTTP API.
type Server struct {
	opts     Options
	store    MessageStore
	provider llm.Provider
	logger   *slog.Logger

	systemPrompt atomic.Pointer[string]

	router  *http.ServeMux
	limiter *RateLimiter

	mu     sync.Mutex
	server *http.Server
}

// New creates a Server. Zero-valued options fall back to DefaultOptions.
func New(store MessageStore, provider llm.Provider, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.Addr == "" {
		opts.Addr = defaults.Addr
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:     opts,
		store:    store,
		provider: provider,
		logger:   opts.Logger,
		router:   http.NewServeMux(),
	}
	s.SetSystemPrompt(opts.SystemPrompt)
	if opts.RateLimit > 0 {
		s.limiter = NewRateLimiter(opts.RateLimit, time.Minute)
	}

	s.setupRoutes()
	return s
}

// SetSystemPrompt replaces the directive prepended to every prompt.
// Safe to call while requests are in flight.
func (s *Server) SetSystemPrompt(prompt string) {
	s.systemPrompt.Store(&prompt)
}

// SystemPrompt returns the current system directive.
func (s *Server) SystemPrompt() string {
	return *s.systemPrompt.Load()
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/messages", s.handleListMessages)
	s.router.HandleFunc("POST /api/messages", s.handleCreateMessage)
	s.router.HandleFunc("POST /api/messages/clear", s.handleClearMessages)
	s.router.HandleFunc("POST /api/chat", s.handleChat)

	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(s.logger),
	}
	if s.limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter, s.logger))
	}
	middlewares = append(middlewares, CORSMiddleware(&CORSConfig{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		MaxAge:         86400,
	}))

	return Chain(middlewares...)(s.router)
}

// ============================================================================
// MESSAGE HANDLERS
// ============================================================================

// CreateMessageRequest is the body of POST /api/messages.
type CreateMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// handleListMessages handles GET /api/messages.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.List(r.Context())
	if err != nil {
		s.internalError(w, r, "MESSAGES_LIST_FAILED", err)
		return
	}
	s.writeJSON(w, http.StatusOK, msgs)
}

// handleCreateMessage handles POST /api/messages.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req CreateMessageRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeRequestError(w, err)
		return
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		s.writeRequestError(w, &ValidationError{Field: "role", Message: err.Error()})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		s.writeRequestError(w, &ValidationError{Field: "content", Message: "content is required"})
		return
	}

	msg, err := s.store.Create(r.Context(), role, req.Content)
	if err != nil {
		s.internalError(w, r, "MESSAGE_CREATE_FAILED", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

// handleClearMessages handles POST /api/messages/clear.
func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.internalError(w, r, "MESSAGES_CLEAR_FAILED", err)
		return
	}
	s.logger.Info("MESSAGES_CLEARED", "request_id", RequestIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// HEALTH
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Provider       string `json:"provider"`
	ProviderStatus string `json:"provider_status"`
	Messages       int    `json:"messages"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:         "ok",
		Version:        Version,
		Provider:       s.provider.Name(),
		ProviderStatus: "unknown",
		Messages:       -1,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if pinger, ok := s.provider.(llm.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			health.ProviderStatus = "unavailable"
			health.Status = "degraded"
		} else {
			health.ProviderStatus = "ok"
		}
	}

	if c, ok := s.store.(counter); ok {
		if n, err := c.Count(ctx); err == nil {
			health.Messages = n
		} else {
			health.Status = "degraded"
		}
	}

	s.writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
// Returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("SERVER_START", "addr", ln.Addr().String(), "provider", s.provider.Name(), "version", Version)
	return srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if s.limiter != nil {
		s.limiter.Close()
	}
	if srv == nil {
		return nil
	}

	s.logger.Info("SERVER_SHUTDOWN", "reason", "graceful")
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("RESPONSE_ENCODE_FAILED", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Message: message})
}

// writeRequestError maps a decode or validation error to 400 or 413.
func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		s.writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	s.writeError(w, http.StatusBadRequest, "Invalid request")
}

// internalError logs the detail and sends only a generic message.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, event string, err error) {
	s.logger.Error(event, "request_id", RequestIDFromContext(r.Context()), "error", err)
	s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
}
