// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/history"
	"github.com/jeranaias/streamchat/internal/logging"
	"github.com/jeranaias/streamchat/internal/ui/chat"
)

// RunTUI starts the full-screen chat client.
func RunTUI(ctx context.Context, env Env, args Args) error {
	if err := RequiresTTY("start the terminal UI"); err != nil {
		return err
	}

	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	logger, err := tuiLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	client := newAPIClient(cfg, logger)
	cache := history.New(client, history.Options{
		FetchTimeout: cfg.Client.Timeout(),
		Logger:       logger.Logger,
	})

	return chat.Run(ctx, chat.Config{
		Chat:      client,
		Cache:     cache,
		ServerURL: client.BaseURL(),
		Markdown:  cfg.Client.Markdown,
		Draft:     args.Query,
		Logger:    logger.Logger,
	})
}

// tuiLogger keeps log lines off the screen: terminal output is redirected
// to the log file.
func tuiLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := cfg.Log
	if logCfg.Output == "" || logCfg.Output == "stderr" || logCfg.Output == "stdout" {
		logCfg.Output = "file"
	}
	if logCfg.Output == "file" {
		path, err := cfg.LogFilePath()
		if err != nil {
			return nil, err
		}
		logCfg.File = path
	}
	return logging.Setup(logCfg)
}
