// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/llm"
	"github.com/jeranaias/streamchat/internal/model"
)

// ============================================================================
// RELAY STATE
// ============================================================================

// RelayState is the lifecycle of one /api/chat invocation.
type RelayState int

const (
	StatePending RelayState = iota
	StatePersistedUser
	StateStreaming
	StateCompleted
	StateFailedBeforeStream
	StateFailedDuringStream
)

// String returns the state name used in logs.
func (s RelayState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePersistedUser:
		return "persisted_user"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailedBeforeStream:
		return "failed_before_stream"
	case StateFailedDuringStream:
		return "failed_during_stream"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s RelayState) Terminal() bool {
	return s >= StateCompleted
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ============================================================================
// STREAM SESSION
// ============================================================================

// streamSession owns the response for one exchange. Headers are committed
// with the first fragment, so a failure before it can still send JSON.
type streamSession struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	writeTimeout time.Duration

	state     RelayState
	buf       strings.Builder
	fragments int
}

func newStreamSession(w http.ResponseWriter, writeTimeout time.Duration) *streamSession {
	return &streamSession{
		w:            w,
		rc:           http.NewResponseController(w),
		writeTimeout: writeTimeout,
	}
}

// started reports whether any byte of the reply has been committed.
func (s *streamSession) started() bool {
	return s.state == StateStreaming || s.state == StateCompleted || s.state == StateFailedDuringStream
}

// open commits the streaming headers. There is no Content-Length, so the
// body goes out chunked.
func (s *streamSession) open() {
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Del("Content-Length")
	s.w.WriteHeader(http.StatusOK)
	s.state = StateStreaming
}

// write appends a fragment to the buffer and forwards it immediately.
func (s *streamSession) write(fragment string) error {
	if fragment == "" {
		return nil
	}
	if !s.started() {
		s.open()
	}

	s.buf.WriteString(fragment)
	s.fragments++

	if s.writeTimeout > 0 {
		if err := s.rc.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	if _, err := io.WriteString(s.w, fragment); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)

	var req ChatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.writeRequestError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeRequestError(w, &ValidationError{Field: "message", Message: "message is required"})
		return
	}

	ctx := r.Context()
	logger := s.logger.With("request_id", RequestIDFromContext(ctx))
	sess := newStreamSession(w, s.opts.WriteTimeout)
	start := time.Now()

	defer func() {
		logger.Info("CHAT_RELAY_DONE",
			"state", sess.state.String(),
			"fragments", sess.fragments,
			"bytes", sess.buf.Len(),
			"duration", time.Since(start),
		)
	}()

	if err := s.relay(ctx, req.Message, sess, logger); err != nil {
		s.failRelay(w, sess, logger, err)
	}
}

// relay runs one exchange. It returns nil only after the assistant message
// has been persisted.
func (s *Server) relay(ctx context.Context, message string, sess *streamSession, logger *slog.Logger) error {
	userMsg, err := s.store.Create(ctx, model.RoleUser, message)
	if err != nil {
		return err
	}
	sess.state = StatePersistedUser

	history, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	prompt := llm.BuildPrompt(s.SystemPrompt(), history)

	logger.Debug("CHAT_STREAM_STARTED",
		"provider", s.provider.Name(),
		"history", len(history),
		"message_id", userMsg.ID,
		"preview", userMsg.Preview(previewRunes),
	)

	if err := s.provider.StreamChat(ctx, prompt, sess.write); err != nil {
		return err
	}

	// An empty reply still opens the stream so the client sees a 200.
	if !sess.started() {
		sess.open()
	}

	// Persist before returning so the reply is listed by the time the
	// client observes the end of the body.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if _, err := s.store.Create(persistCtx, model.RoleAssistant, sess.buf.String()); err != nil {
		return err
	}

	sess.state = StateCompleted
	return nil
}

// failRelay applies the failure policy: structured 500 before the first
// byte, connection abort after it. No partial reply is persisted.
func (s *Server) failRelay(w http.ResponseWriter, sess *streamSession, logger *slog.Logger, err error) {
	attrs := []any{"error", err, "after_state", sess.state.String()}
	if perr, ok := llm.IsProviderError(err); ok {
		attrs = append(attrs, "provider_error", perr.Type.String())
	}

	if !sess.started() {
		sess.state = StateFailedBeforeStream
		logger.Error("CHAT_FAILED_BEFORE_STREAM", attrs...)
		s.writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}

	sess.state = StateFailedDuringStream
	if errors.Is(err, context.Canceled) {
		logger.Warn("CHAT_CLIENT_DISCONNECTED", attrs...)
	} else {
		logger.Error("CHAT_FAILED_DURING_STREAM", attrs...)
	}

	// The wire format has no error channel. Aborting skips the final chunk,
	// so the client reads an unexpected EOF instead of a clean end.
	panic(http.ErrAbortHandler)
}
