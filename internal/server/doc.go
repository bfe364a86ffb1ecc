// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the chat HTTP API and the streaming relay.
//
// # Endpoints
//
//   - GET  /api/messages       - Ordered message history
//   - POST /api/messages       - Persist a single message
//   - POST /api/messages/clear - Delete all messages (204)
//   - POST /api/chat           - Stream a model reply as raw UTF-8 text
//   - GET  /health             - Health check
//
// # Streaming
//
// /api/chat persists the user message, builds the prompt from the full
// history and relays provider fragments to the client as they arrive, with
// no framing. The reply is complete when the response ends normally. A
// failure before the first fragment produces a 500 with a JSON
// {"message": ...} body. A failure after streaming began aborts the
// connection so the client sees a truncated chunked body.
//
// # Middleware
//
//   - Panic recovery (http.ErrAbortHandler is re-raised)
//   - Security headers
//   - Request ids
//   - Structured request logging
//   - Per-IP rate limiting
//   - CORS
//
// # Usage
//
//	srv := server.New(store, provider, server.DefaultOptions())
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
