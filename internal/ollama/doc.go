// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Client implements llm.Provider over Ollama's streaming /api/chat endpoint,
// which returns one JSON object per line until an object with "done": true.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL: "http://127.0.0.1:11434",
//	    Model:   "llama3.2",
//	})
//	err := client.StreamChat(ctx, prompt, func(fragment string) error {
//	    _, err := w.Write([]byte(fragment))
//	    return err
//	})
package ollama
