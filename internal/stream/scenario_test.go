// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/api"
	"github.com/jeranaias/streamchat/internal/history"
	"github.com/jeranaias/streamchat/internal/llm"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/server"
	"github.com/jeranaias/streamchat/internal/storage"
)

// gatedProvider emits its fragments once release is closed (if set),
// then returns err.
type gatedProvider struct {
	fragments []string
	err       error
	release   chan struct{}
}

func (p *gatedProvider) Name() string { return "gated" }

func (p *gatedProvider) StreamChat(ctx context.Context, _ []llm.Message, onFragment llm.FragmentFunc) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, f := range p.fragments {
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return p.err
}

type stack struct {
	client   *api.Client
	cache    *history.Cache
	consumer *Consumer
	rec      *recorder
}

func newStack(t *testing.T, provider llm.Provider) *stack {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(server.New(store, provider, server.Options{}).Handler())
	t.Cleanup(srv.Close)

	client := api.NewClient(api.Config{BaseURL: srv.URL})
	cache := history.New(client, history.Options{})
	rec := &recorder{}
	return &stack{
		client:   client,
		cache:    cache,
		consumer: New(client, cache, rec.options()),
		rec:      rec,
	}
}

func roles(msgs []model.Message) []model.Role {
	out := make([]model.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

// Empty store, send "Hi", provider streams "Hel" then "lo!".
func TestScenario_SuccessfulExchange(t *testing.T) {
	s := newStack(t, &gatedProvider{fragments: []string{"Hel", "lo!"}})

	require.NoError(t, s.consumer.Send(context.Background(), "Hi"))
	s.cache.Wait()

	msgs := s.cache.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant}, roles(msgs))
	assert.Equal(t, "Hi", msgs[0].Content)
	assert.Equal(t, "Hello!", msgs[1].Content)
	assert.Less(t, msgs[0].ID, msgs[1].ID)
	assert.False(t, msgs[0].Transient(), "optimistic entry replaced by the stored one")

	assert.Equal(t, State{}, s.consumer.State())
	assert.Empty(t, s.rec.notifications())
}

// Send "ping" then stop before any chunk arrives.
func TestScenario_StopBeforeFirstChunk(t *testing.T) {
	provider := &gatedProvider{fragments: []string{"pong"}, release: make(chan struct{})}
	s := newStack(t, provider)

	done := make(chan error, 1)
	go func() { done <- s.consumer.Send(context.Background(), "ping") }()

	require.Eventually(t, func() bool { return s.consumer.State().IsStreaming }, 2*time.Second, 5*time.Millisecond)
	genBefore := s.cache.Generation()

	s.consumer.Stop()

	assert.Equal(t, State{}, s.consumer.State())
	require.NoError(t, <-done)
	assert.Empty(t, s.rec.notifications())
	assert.Greater(t, s.cache.Generation(), genBefore, "history cache was invalidated")
	close(provider.release)
	s.cache.Wait()
}

// Provider fails after emitting "partial".
func TestScenario_ProviderFailsMidStream(t *testing.T) {
	s := newStack(t, &gatedProvider{fragments: []string{"partial"}, err: errors.New("upstream reset")})

	err := s.consumer.Send(context.Background(), "Hi")
	require.Error(t, err)
	s.cache.Wait()

	assert.Equal(t, State{}, s.consumer.State())
	assert.Contains(t, s.rec.partials(), "partial")

	notes := s.rec.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, ReceiveFailedMessage, notes[0].Description)

	msgs, err := s.client.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Role{model.RoleUser}, roles(msgs))
	assert.Equal(t, msgs, s.cache.Snapshot())
}

// Clear followed by list returns [].
func TestScenario_ClearThenList(t *testing.T) {
	s := newStack(t, &llm.Echo{})

	require.NoError(t, s.consumer.Send(context.Background(), "abc"))
	s.cache.Wait()
	require.Len(t, s.cache.Snapshot(), 2)

	require.NoError(t, s.cache.Clear(context.Background()))

	msgs, err := s.client.ListMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Message{}, msgs)

	got, err := s.cache.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScenario_ReversedEchoAcrossRuneSplits(t *testing.T) {
	s := newStack(t, &llm.Echo{ChunkBytes: 1})

	require.NoError(t, s.consumer.Send(context.Background(), "añb€c😀"))
	s.cache.Wait()

	partials := s.rec.partials()
	require.NotEmpty(t, partials)
	assert.Equal(t, "😀c€bña", partials[len(partials)-1])
	for _, p := range partials {
		assert.NotContains(t, p, "�")
	}

	msgs := s.cache.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, "😀c€bña", msgs[1].Content)
}
