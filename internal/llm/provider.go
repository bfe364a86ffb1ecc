// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"

	"github.com/jeranaias/streamchat/internal/model"
)

// DefaultSystemPrompt is prepended to every conversation unless configured.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// Message is a single prompt entry sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FragmentFunc receives each text fragment in arrival order.
type FragmentFunc func(fragment string) error

// Provider streams a model reply.
//
// StreamChat returns nil once the provider signals the end of the reply.
// It returns the callback's error unchanged if the callback fails.
type Provider interface {
	Name() string
	StreamChat(ctx context.Context, messages []Message, onFragment FragmentFunc) error
}

// Pinger is implemented by providers that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildPrompt maps persisted history to provider messages, prefixed with the
// system directive. An empty directive is omitted.
func BuildPrompt(systemPrompt string, history []model.Message) []Message {
	prompt := make([]Message, 0, len(history)+1)
	if systemPrompt != "" {
		prompt = append(prompt, Message{Role: string(model.RoleSystem), Content: systemPrompt})
	}
	for _, msg := range history {
		prompt = append(prompt, Message{Role: string(msg.Role), Content: msg.Content})
	}
	return prompt
}
