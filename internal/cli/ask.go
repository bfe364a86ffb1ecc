// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/history"
	"github.com/jeranaias/streamchat/internal/stream"
)

// maxStdinQuestion bounds a question read from stdin.
const maxStdinQuestion = 1 << 20

// RunAsk sends one message and streams the reply to stdout.
//
// The question is read from stdin when it is "-" or when none is given and
// stdin is not a terminal, so `git diff | streamchat ask` works.
func RunAsk(ctx context.Context, env Env, args Args) error {
	question, err := askQuestion(env, args)
	if err != nil {
		return err
	}

	cfg, logger, client, err := clientSetup(env, args)
	if err != nil {
		return err
	}
	defer logger.Close()

	out := env.Stdout
	if args.JSON {
		out = io.Discard
	}
	printer := newStreamPrinter(out)

	var note *stream.Notification
	cache := history.New(client, history.Options{
		FetchTimeout: cfg.Client.Timeout(),
		Logger:       logger.Logger,
	})
	defer cache.Wait()
	consumer := stream.New(client, cache, stream.Options{
		OnState: printer.OnState,
		OnNotify: func(n stream.Notification) {
			note = &n
		},
		Logger: logger.Logger,
	})

	start := time.Now()
	err = consumer.Send(ctx, question)
	if printer.Printed() && !args.JSON {
		fmt.Fprintln(env.Stdout)
	}
	if err != nil {
		if note != nil {
			return &CommandError{Command: "ask", Action: "stream", Reason: note.Description, Err: err}
		}
		return err
	}
	if err := interrupted(ctx, nil); err != nil {
		return err
	}

	logger.Debug("ASK_DONE", "duration", time.Since(start), "bytes", len(printer.Content()))
	return OutputJSON(env.Stdout, args.JSON, "ask", func() (any, error) {
		return AskData{
			Question:   question,
			Response:   printer.Content(),
			Server:     client.BaseURL(),
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	})
}

// askQuestion resolves the question from args or stdin.
func askQuestion(env Env, args Args) (string, error) {
	q := args.Query
	if q == "-" || (q == "" && !env.Interactive && env.Stdin != nil) {
		data, err := io.ReadAll(io.LimitReader(env.Stdin, maxStdinQuestion))
		if err != nil {
			return "", fmt.Errorf("failed to read question from stdin: %w", err)
		}
		q = string(data)
	}
	if strings.TrimSpace(q) == "" {
		return "", ErrMissingArgument("question", `streamchat ask "What is Go?"`)
	}
	return q, nil
}
