// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the streamchat server.
//
// Message endpoints return decoded records. OpenChat returns the raw reply
// body so callers can decode it incrementally; a body that ends with
// io.ErrUnexpectedEOF was aborted by the server and must not be treated as a
// complete reply.
package api
