// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/logging"
	"github.com/jeranaias/streamchat/internal/server"
	"github.com/jeranaias/streamchat/internal/storage"
)

// shutdownTimeout bounds draining in-flight streams on exit.
const shutdownTimeout = 15 * time.Second

// RunServe runs the chat server until ctx is cancelled.
//
// The config file is watched: edits to server.system_prompt and log.level
// apply without a restart. Other settings need one.
func RunServe(ctx context.Context, env Env, args Args) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cfg, args); err != nil {
		return err
	}

	logger, err := setupLogger(cfg, env.Stderr)
	if err != nil {
		return err
	}
	defer logger.Close()
	slog.SetDefault(logger.Logger)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, cfg, args, ln, logger)
}

// applyServeFlags applies serve's command-line flags and revalidates.
func applyServeFlags(cfg *config.Config, args Args) error {
	if args.Addr != "" {
		cfg.Server.Addr = args.Addr
	}
	if args.Provider != "" {
		cfg.Provider.Kind = args.Provider
	}
	if args.Model != "" {
		switch cfg.Provider.Kind {
		case config.ProviderOllama:
			cfg.Provider.Ollama.Model = args.Model
		case config.ProviderOpenAI:
			cfg.Provider.OpenAI.Model = args.Model
		}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

// serve wires storage, provider and server on ln and blocks until ctx is
// done or the server fails.
func serve(ctx context.Context, cfg *config.Config, args Args, ln net.Listener, logger *logging.Logger) error {
	dbPath, err := cfg.StoragePath()
	if err != nil {
		ln.Close()
		return err
	}
	store, err := storage.Open(ctx, dbPath)
	if err != nil {
		ln.Close()
		return err
	}
	defer store.Close()

	provider, err := NewProvider(cfg.Provider, logger.Logger)
	if err != nil {
		ln.Close()
		return err
	}
	if cfg.Provider.Kind == config.ProviderOllama {
		checkModel(ctx, newOllamaClient(cfg.Provider), cfg.Provider.Ollama.Model, logger.Logger)
	}

	srv := server.New(store, provider, server.Options{
		Addr:         cfg.Server.Addr,
		SystemPrompt: cfg.Server.SystemPrompt,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    cfg.Server.RateLimit,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Logger:       logger.Logger,
	})

	logger.Info("SERVE_CONFIG",
		"db", dbPath,
		"provider", cfg.Provider.Kind,
		"model", providerModel(cfg.Provider),
		"rate_limit", cfg.Server.RateLimit,
	)

	if path, err := ConfigPath(args); err == nil {
		watcher, err := config.Watch(path, 0, func(next *config.Config) {
			reloadServer(srv, logger, next)
		}, logger.Logger)
		if err != nil {
			logger.Warn("CONFIG_WATCH_DISABLED", "path", path, "error", err)
		} else {
			defer watcher.Close()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// reloadServer applies the settings that can change while running.
func reloadServer(srv *server.Server, logger *logging.Logger, next *config.Config) {
	if next.Server.SystemPrompt != srv.SystemPrompt() {
		srv.SetSystemPrompt(next.Server.SystemPrompt)
		logger.Info("SYSTEM_PROMPT_RELOADED", "length", len(next.Server.SystemPrompt))
	}
	if level, err := logging.ParseLevel(next.Log.Level); err == nil && level != logger.Level() {
		logger.SetLevel(level)
		logger.Info("LOG_LEVEL_RELOADED", "level", level.String())
	}
}
