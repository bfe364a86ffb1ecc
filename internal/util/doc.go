// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the CLI, TUI and config.
//
// String Utilities:
//   - TruncateWidth, PadRight, StringWidth: terminal-column aware via go-runewidth
//   - TruncateRunes: UTF-8 safe truncation by character count
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
