// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides an OpenAI-compatible chat completions client.
//
// Client implements llm.Provider by posting to {BaseURL}/chat/completions
// with "stream": true and reading the Server-Sent Events reply until the
// "[DONE]" marker. Any API that speaks this dialect (OpenAI, OpenRouter,
// vLLM, llama.cpp server) works by changing BaseURL and Model.
//
// # Usage
//
//	client := cloud.NewClient(cloud.Config{APIKey: key})
//	err := client.StreamChat(ctx, prompt, onFragment)
//
// API keys are never logged; KeyFingerprint gives a stable identifier.
package cloud
