// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm defines the model provider contract used by the chat relay.
//
// A Provider turns an ordered list of (role, content) pairs into a live
// sequence of text fragments. Fragments are delivered to a callback in the
// order they arrive; returning an error from the callback stops the stream.
//
// # Implementations
//
//   - ollama.Client: local Ollama server (NDJSON)
//   - cloud.Client: OpenAI-compatible API (SSE)
//   - Echo: deterministic stub that streams the last user message reversed
//
// WithIdleTimeout wraps any provider so that a stalled stream fails with
// a ProviderError of type ErrTypeTimeout.
package llm
