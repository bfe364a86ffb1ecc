// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/model"
)

func collect(t *testing.T, p Provider, messages []Message) ([]string, error) {
	t.Helper()
	var fragments []string
	err := p.StreamChat(context.Background(), messages, func(fragment string) error {
		fragments = append(fragments, fragment)
		return nil
	})
	return fragments, err
}

func TestReverse(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "cba"},
		{"héllo", "olléh"},
		{"a😀b", "b😀a"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Reverse(tc.in))
	}
}

func TestEcho_StreamsReversedLastUserMessage(t *testing.T) {
	echo := &Echo{ChunkBytes: 3}
	prompt := []Message{
		{Role: "system", Content: DefaultSystemPrompt},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "tsrif"},
		{Role: "user", Content: "héllo wörld"},
	}

	fragments, err := collect(t, echo, prompt)
	require.NoError(t, err)
	require.Greater(t, len(fragments), 1)

	assert.Equal(t, "dlröw olléh", strings.Join(fragments, ""))
}

func TestEcho_SplitsMultiByteRunes(t *testing.T) {
	// "é" is two bytes; with one-byte chunks each half arrives alone.
	echo := &Echo{ChunkBytes: 1}

	fragments, err := collect(t, echo, []Message{{Role: "user", Content: "é"}})
	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.False(t, utf8.ValidString(fragments[0]))
	assert.Equal(t, "é", fragments[0]+fragments[1])
}

func TestEcho_CallbackErrorStopsStream(t *testing.T) {
	echo := &Echo{ChunkBytes: 1}
	boom := errors.New("client went away")

	calls := 0
	err := echo.StreamChat(context.Background(), []Message{{Role: "user", Content: "abcdef"}}, func(string) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestBuildPrompt(t *testing.T) {
	history := []model.Message{
		{ID: 1, Role: model.RoleUser, Content: "hello"},
		{ID: 2, Role: model.RoleAssistant, Content: "Hi there!"},
	}

	prompt := BuildPrompt(DefaultSystemPrompt, history)
	require.Len(t, prompt, 3)
	assert.Equal(t, Message{Role: "system", Content: DefaultSystemPrompt}, prompt[0])
	assert.Equal(t, Message{Role: "user", Content: "hello"}, prompt[1])
	assert.Equal(t, Message{Role: "assistant", Content: "Hi there!"}, prompt[2])

	assert.Len(t, BuildPrompt("", history), 2)
}

// stallProvider emits one fragment then blocks until cancelled.
type stallProvider struct{}

func (stallProvider) Name() string { return "stall" }

func (stallProvider) StreamChat(ctx context.Context, _ []Message, onFragment FragmentFunc) error {
	if err := onFragment("partial"); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestWithIdleTimeout_FailsStalledStream(t *testing.T) {
	p := WithIdleTimeout(stallProvider{}, 50*time.Millisecond)

	start := time.Now()
	fragments, err := collect(t, p, nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"partial"}, fragments)

	perr, ok := IsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, ErrTypeTimeout, perr.Type)
	assert.ErrorIs(t, err, ErrIdleTimeout)
}

func TestWithIdleTimeout_ResetsOnEachFragment(t *testing.T) {
	// Total runtime exceeds the timeout, but no single gap does.
	echo := &Echo{ChunkBytes: 1, Delay: 20 * time.Millisecond}
	p := WithIdleTimeout(echo, 200*time.Millisecond)

	fragments, err := collect(t, p, []Message{{Role: "user", Content: "abcdefghijklmno"}})
	require.NoError(t, err)
	assert.Equal(t, "onmlkjihgfedcba", strings.Join(fragments, ""))
}

func TestWithIdleTimeout_ZeroIsPassthrough(t *testing.T) {
	echo := &Echo{}
	assert.Same(t, echo, WithIdleTimeout(echo, 0))
}

func TestProviderError_Message(t *testing.T) {
	err := &ProviderError{Provider: "ollama", Type: ErrTypeNotRunning, Message: "not running", Cause: errors.New("dial tcp")}
	assert.Equal(t, "ollama: not running: dial tcp", err.Error())
	assert.Equal(t, "not_running", err.Type.String())
}
