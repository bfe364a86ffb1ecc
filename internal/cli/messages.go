// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jeranaias/streamchat/internal/history"
)

// RunHistory prints the conversation, optionally only the last --limit
// messages.
func RunHistory(ctx context.Context, env Env, args Args) error {
	limit, err := historyLimit(args)
	if err != nil {
		return err
	}

	cfg, logger, client, err := clientSetup(env, args)
	if err != nil {
		return err
	}
	defer logger.Close()

	cache := history.New(client, history.Options{
		FetchTimeout: cfg.Client.Timeout(),
		Logger:       logger.Logger,
	})

	return OutputJSON(env.Stdout, args.JSON, "history", func() (any, error) {
		msgs, err := cache.Read(ctx)
		if err != nil {
			return nil, interrupted(ctx, err)
		}
		total := len(msgs)
		if limit > 0 && total > limit {
			msgs = msgs[total-limit:]
		}

		if !args.JSON {
			printMessages(env.Stdout, msgs, GetTerminalWidth())
		}
		return HistoryData{Messages: msgs, Count: len(msgs), Total: total}, nil
	})
}

// historyLimit validates --limit. Zero means no limit.
func historyLimit(args Args) (int, error) {
	p := NewArgParser(args.Raw)
	if !p.HasFlag("limit") {
		return 0, nil
	}
	raw := p.Flag("limit")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &UsageError{
			Field:   "--limit",
			Value:   raw,
			Reason:  "must be a non-negative integer",
			Example: "streamchat history --limit 20",
		}
	}
	return n, nil
}

// RunClear deletes every message after confirmation.
func RunClear(ctx context.Context, env Env, args Args) error {
	ok, err := RequireConfirmation(env.Stdin, env.Stderr, "delete every message", ConfirmationOptions{
		ConfirmFlag: args.Confirm,
		JSONMode:    args.JSON,
		Interactive: env.Interactive,
	})
	if err != nil {
		return &UsageError{Field: "--confirm", Reason: err.Error(), Example: "streamchat clear --confirm"}
	}
	if !ok {
		fmt.Fprintln(env.Stderr, DimStyle.Render("Cancelled."))
		return nil
	}

	_, logger, client, err := clientSetup(env, args)
	if err != nil {
		return err
	}
	defer logger.Close()

	return OutputJSON(env.Stdout, args.JSON, "clear", func() (any, error) {
		if err := client.ClearMessages(ctx); err != nil {
			return nil, interrupted(ctx, err)
		}
		logger.Debug("MESSAGES_CLEARED", "server", client.BaseURL())
		if !args.JSON {
			fmt.Fprintln(env.Stdout, SuccessStyle.Render("[OK]")+" Conversation cleared.")
		}
		return ClearData{Cleared: true, Server: client.BaseURL()}, nil
	})
}
