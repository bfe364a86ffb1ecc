// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads, validates and saves the streamchat configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (STREAMCHAT_*, OPENAI_API_KEY)
//   - $STREAMCHAT_CONFIG or ~/.streamchat/config.toml
//   - Built-in defaults
//
// # Sections
//
//   - [server]: listen address, system prompt, timeouts, rate limit, CORS
//   - [storage]: SQLite database path
//   - [provider]: backend kind plus [provider.ollama], [provider.openai], [provider.echo]
//   - [client]: server URL used by the TUI and CLI commands
//   - [log]: slog level, format and destination
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
// A running server can follow edits with Watch:
//
//	w, err := config.Watch(path, 0, func(cfg *config.Config) {
//	    srv.SetSystemPrompt(cfg.Server.SystemPrompt)
//	}, logger)
package config
