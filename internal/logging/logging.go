// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures log/slog from the [log] config section.
//
// Messages are uppercase event names with key/value attributes:
//
//	logger.Info("CHAT_RELAY_DONE", "state", "completed", "bytes", 42)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/config"
)

// Logger is a configured slog.Logger whose level can change at runtime.
type Logger struct {
	*slog.Logger

	level  *slog.LevelVar
	closer io.Closer
}

// Setup builds a logger from cfg. The returned logger is not installed as
// the default; call slog.SetDefault if wanted.
func Setup(cfg config.LogConfig) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var (
		writer io.Writer
		closer io.Closer
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	case "file":
		if cfg.File == "" {
			return nil, fmt.Errorf("log file path is required when output is 'file'")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer, closer = f, f
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	handler, lv, err := newHandler(writer, cfg.Format, level)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return &Logger{Logger: slog.New(handler), level: lv, closer: closer}, nil
}

// New builds a logger writing to w. Used by tests and the TUI, which
// must keep stderr clean.
func New(w io.Writer, format string, level slog.Level) *Logger {
	handler, lv, err := newHandler(w, format, level)
	if err != nil {
		handler, lv, _ = newHandler(w, "text", level)
	}
	return &Logger{Logger: slog.New(handler), level: lv}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, "text", slog.LevelError)
}

func newHandler(w io.Writer, format string, level slog.Level) (slog.Handler, *slog.LevelVar, error) {
	lv := new(slog.LevelVar)
	lv.Set(level)

	opts := &slog.HandlerOptions{
		Level: lv,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format("2006-01-02T15:04:05.000Z07:00"))
			}
			if a.Value.Kind() == slog.KindDuration {
				return slog.String(a.Key, a.Value.Duration().Round(time.Microsecond).String())
			}
			return a
		},
	}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), lv, nil
	case "json":
		return slog.NewJSONHandler(w, opts), lv, nil
	default:
		return nil, nil, fmt.Errorf("invalid log format: %s", format)
	}
}

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// ParseLevel parses debug, info, warn (or warning) and error.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}
