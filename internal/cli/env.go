// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/streamchat/internal/api"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/logging"
)

// Env is the process environment a command runs in.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive reports whether stdin is a terminal.
	Interactive bool
}

// DefaultEnv returns the real process streams.
func DefaultEnv() Env {
	return Env{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: IsTTY(),
	}
}

// Run executes cmd.
//
// Interrupts cancel ctx for all commands but chat, where Ctrl+C stops the
// reply being streamed instead of exiting.
func Run(ctx context.Context, cmd Command, args Args, env Env) error {
	if cmd != CmdChat {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	switch cmd {
	case CmdTUI:
		return RunTUI(ctx, env, args)
	case CmdServe:
		return RunServe(ctx, env, args)
	case CmdChat:
		return RunChat(ctx, env, args)
	case CmdAsk:
		return RunAsk(ctx, env, args)
	case CmdHistory:
		return RunHistory(ctx, env, args)
	case CmdClear:
		return RunClear(ctx, env, args)
	case CmdStatus:
		return RunStatus(ctx, env, args)
	case CmdConfig:
		return RunConfig(env, args)
	case CmdVersion:
		return PrintVersion(env.Stdout, args.JSON)
	case CmdHelp:
		PrintUsage(env.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

// =============================================================================
// CONFIG AND LOGGING
// =============================================================================

// ConfigPath returns the config file a command should use.
func ConfigPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.Path()
}

// LoadConfig loads the configuration and applies command-line overrides.
// An explicit --config must exist; the default path may be missing.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		if _, statErr := os.Stat(args.ConfigPath); statErr != nil {
			return nil, &ConfigError{Path: args.ConfigPath, Err: statErr}
		}
		cfg, err = config.LoadFrom(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Path: args.ConfigPath, Err: err}
	}

	if args.ServerURL != "" {
		cfg.Client.ServerURL = args.ServerURL
	}
	switch {
	case args.Verbose:
		cfg.Log.Level = "debug"
	case args.Quiet:
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// setupLogger builds the logger for a command. Output "stderr" goes to
// stderrW so tests can capture it.
func setupLogger(cfg *config.Config, stderrW io.Writer) (*logging.Logger, error) {
	logCfg := cfg.Log
	switch logCfg.Output {
	case "file":
		path, err := cfg.LogFilePath()
		if err != nil {
			return nil, err
		}
		logCfg.File = path
		return logging.Setup(logCfg)
	case "stdout":
		return logging.Setup(logCfg)
	default:
		level, err := logging.ParseLevel(logCfg.Level)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		return logging.New(stderrW, logCfg.Format, level), nil
	}
}

// newAPIClient creates the HTTP client for the configured server.
func newAPIClient(cfg *config.Config, logger *logging.Logger) *api.Client {
	return api.NewClient(api.Config{
		BaseURL: cfg.Client.ServerURL,
		Timeout: cfg.Client.Timeout(),
		Logger:  logger.Logger,
	})
}

// clientSetup loads config, logger and API client for client commands.
func clientSetup(env Env, args Args) (*config.Config, *logging.Logger, *api.Client, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := setupLogger(cfg, env.Stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, newAPIClient(cfg, logger), nil
}

// interrupted converts a cancelled parent context into the error the
// process exits with.
func interrupted(ctx context.Context, err error) error {
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
