// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/llm"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestServer(t *testing.T, store MessageStore, provider llm.Provider) *Server {
	t.Helper()
	return New(store, provider, Options{RateLimit: 0})
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMessages(t *testing.T, body *bytes.Buffer) []model.Message {
	t.Helper()
	var msgs []model.Message
	require.NoError(t, json.Unmarshal(body.Bytes(), &msgs))
	return msgs
}

func decodeErrorMessage(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp.Message
}

// failingStore fails every operation named in failOn.
type failingStore struct {
	MessageStore
	failOn map[string]bool
}

var errStoreDown = errors.New("disk unavailable")

func (f *failingStore) List(ctx context.Context) ([]model.Message, error) {
	if f.failOn["list"] {
		return nil, &storage.PersistenceError{Op: "list", Err: errStoreDown}
	}
	return f.MessageStore.List(ctx)
}

func (f *failingStore) Create(ctx context.Context, role model.Role, content string) (model.Message, error) {
	if f.failOn["create"] || (f.failOn["create-assistant"] && role == model.RoleAssistant) {
		return model.Message{}, &storage.PersistenceError{Op: "create", Err: errStoreDown}
	}
	return f.MessageStore.Create(ctx, role, content)
}

func (f *failingStore) Clear(ctx context.Context) error {
	if f.failOn["clear"] {
		return &storage.PersistenceError{Op: "clear", Err: errStoreDown}
	}
	return f.MessageStore.Clear(ctx)
}

// =============================================================================
// MESSAGE ENDPOINT TESTS
// =============================================================================

func TestListMessages_Empty(t *testing.T) {
	s := newTestServer(t, newTestStore(t), &llm.Echo{})

	rec := doRequest(t, s.Handler(), http.MethodGet, "/api/messages", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCreateMessage(t *testing.T) {
	s := newTestServer(t, newTestStore(t), &llm.Echo{})
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/api/messages", `{"role":"user","content":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Positive(t, msg.ID)
	assert.Equal(t, model.RoleUser, msg.Role)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())

	rec = doRequest(t, h, http.MethodGet, "/api/messages", "")
	msgs := decodeMessages(t, rec.Body)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
}

func TestCreateMessage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty body", "", "request body is empty"},
		{"malformed", `{"role":`, "invalid JSON body"},
		{"bad role", `{"role":"robot","content":"x"}`, "role:"},
		{"missing content", `{"role":"user"}`, "content: content is required"},
		{"blank content", `{"role":"user","content":"   "}`, "content: content is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			s := newTestServer(t, store, &llm.Echo{})

			rec := doRequest(t, s.Handler(), http.MethodPost, "/api/messages", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeErrorMessage(t, rec.Body), tt.wantMsg)

			n, err := store.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n, "validation failures must not persist anything")
		})
	}
}

func TestCreateMessage_BodyTooLarge(t *testing.T) {
	s := New(newTestStore(t), &llm.Echo{}, Options{MaxBodyBytes: 32})

	body := `{"role":"user","content":"` + strings.Repeat("a", 100) + `"}`
	rec := doRequest(t, s.Handler(), http.MethodPost, "/api/messages", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestClearMessages(t *testing.T) {
	store := newTestStore(t)
	s := newTestServer(t, store, &llm.Echo{})
	h := s.Handler()

	for _, c := range []string{"a", "b", "c"} {
		_, err := store.Create(context.Background(), model.RoleUser, c)
		require.NoError(t, err)
	}

	rec := doRequest(t, h, http.MethodPost, "/api/messages/clear", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/api/messages", "")
	assert.Empty(t, decodeMessages(t, rec.Body))

	// Clearing an empty store is not an error.
	rec = doRequest(t, h, http.MethodPost, "/api/messages/clear", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStoreFailures_AreGeneric500(t *testing.T) {
	tests := []struct {
		name   string
		failOn string
		method string
		path   string
		body   string
	}{
		{"list", "list", http.MethodGet, "/api/messages", ""},
		{"create", "create", http.MethodPost, "/api/messages", `{"role":"user","content":"x"}`},
		{"clear", "clear", http.MethodPost, "/api/messages/clear", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{MessageStore: newTestStore(t), failOn: map[string]bool{tt.failOn: true}}
			s := newTestServer(t, store, &llm.Echo{})

			rec := doRequest(t, s.Handler(), tt.method, tt.path, tt.body)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			msg := decodeErrorMessage(t, rec.Body)
			assert.Equal(t, internalErrorMessage, msg)
			assert.NotContains(t, msg, errStoreDown.Error())
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, newTestStore(t), &llm.Echo{})

	rec := doRequest(t, s.Handler(), http.MethodDelete, "/api/messages", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// =============================================================================
// HEALTH TESTS
// =============================================================================

type downProvider struct{ llm.Echo }

func (downProvider) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Create(context.Background(), model.RoleUser, "x")
	require.NoError(t, err)

	s := newTestServer(t, store, &llm.Echo{})
	rec := doRequest(t, s.Handler(), http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, Version, health.Version)
	assert.Equal(t, "echo", health.Provider)
	assert.Equal(t, "ok", health.ProviderStatus)
	assert.Equal(t, 1, health.Messages)
}

func TestHealth_ProviderDown(t *testing.T) {
	s := newTestServer(t, newTestStore(t), &downProvider{})
	rec := doRequest(t, s.Handler(), http.MethodGet, "/health", "")

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "unavailable", health.ProviderStatus)
}

// =============================================================================
// SERVER OPTION TESTS
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	s := New(newTestStore(t), &llm.Echo{}, Options{})

	assert.Equal(t, DefaultAddr, s.Addr())
	assert.Equal(t, "", s.SystemPrompt())
	assert.Equal(t, int64(MaxRequestBodySize), s.opts.MaxBodyBytes)
	assert.Nil(t, s.limiter)
}

func TestSetSystemPrompt(t *testing.T) {
	s := New(newTestStore(t), &llm.Echo{}, DefaultOptions())
	assert.Equal(t, llm.DefaultSystemPrompt, s.SystemPrompt())

	s.SetSystemPrompt("Be terse.")
	assert.Equal(t, "Be terse.", s.SystemPrompt())
}

func TestShutdown_NotStarted(t *testing.T) {
	s := New(newTestStore(t), &llm.Echo{}, DefaultOptions())
	assert.NoError(t, s.Shutdown(context.Background()))
}
