// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/streamchat/internal/history"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/stream"
	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides line editing and input history for the chat REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor. historyFile may be empty to keep
// history in memory only.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from the history file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt. Non-blank input is added
// to history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history, owner read/write only.
func (c *ChatCLI) SaveHistory() error {
	if c.historyFile == "" {
		return nil
	}
	var buf bytes.Buffer
	if _, err := c.line.WriteHistory(&buf); err != nil {
		return err
	}
	return util.AtomicWriteFile(c.historyFile, buf.Bytes(), 0600)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() error {
	err := c.SaveHistory()
	c.line.Close()
	return err
}

// =============================================================================
// REPL
// =============================================================================

// RunChat runs the interactive line chat. Ctrl+C while a reply streams
// stops it; Ctrl+C at the prompt or Ctrl+D exits.
func RunChat(ctx context.Context, env Env, args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	cfg, logger, client, err := clientSetup(env, args)
	if err != nil {
		return err
	}
	defer logger.Close()

	historyFile, err := cfg.HistoryFilePath()
	if err != nil {
		logger.Warn("CHAT_HISTORY_DISABLED", "error", err)
		historyFile = ""
	}

	cache := history.New(client, history.Options{
		FetchTimeout: cfg.Client.Timeout(),
		Logger:       logger.Logger,
	})
	printer := newStreamPrinter(env.Stdout)
	consumer := stream.New(client, cache, stream.Options{
		OnState: printer.OnState,
		OnNotify: func(n stream.Notification) {
			fmt.Fprintf(env.Stderr, "\n%s %s\n", ErrorStyle.Render("["+n.Title+"]"), n.Description)
		},
		Logger: logger.Logger,
	})

	width := GetTerminalWidth()
	if !args.Quiet {
		fmt.Fprintln(env.Stdout, TitleStyle.Render("streamchat")+" "+DimStyle.Render(client.BaseURL()))
		fmt.Fprintln(env.Stdout, RenderSeparator(width))
	}
	msgs, err := cache.Read(ctx)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		printMessages(env.Stdout, msgs, width)
		fmt.Fprintln(env.Stdout, RenderSeparator(width))
	} else if !args.Quiet {
		fmt.Fprintln(env.Stdout, DimStyle.Render("Type a message and press Enter. /help lists commands."))
	}

	input := NewChatCLI(historyFile)
	defer func() {
		if err := input.Close(); err != nil {
			logger.Warn("CHAT_HISTORY_SAVE_FAILED", "path", historyFile, "error", err)
		}
	}()

	repl := &chatREPL{
		env:      env,
		input:    input,
		cache:    cache,
		consumer: consumer,
		printer:  printer,
		width:    width,
	}
	return repl.loop(ctx)
}

type chatREPL struct {
	env      Env
	input    *ChatCLI
	cache    *history.Cache
	consumer *stream.Consumer
	printer  *streamPrinter
	width    int
}

func (r *chatREPL) loop(ctx context.Context) error {
	prompt := "you> "
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.input.ReadInput(prompt)
		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			// Ctrl+C on an empty prompt clears the line.
			continue
		case errors.Is(err, io.EOF):
			fmt.Fprintln(r.env.Stdout)
			return nil
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

// send streams one reply. SIGINT during the exchange stops it.
func (r *chatREPL) send(ctx context.Context, content string) {
	r.printer.Reset()
	fmt.Fprintln(r.env.Stdout, RenderRole(model.RoleAssistant))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			r.consumer.Stop()
			close(stopped)
		case <-done:
		}
	}()

	err := r.consumer.Send(ctx, content)
	close(done)
	signal.Stop(sigCh)

	if r.printer.Printed() {
		fmt.Fprintln(r.env.Stdout)
	}
	select {
	case <-stopped:
		fmt.Fprintln(r.env.Stdout, WarningStyle.Render("[stopped]"))
	default:
	}
	if errors.Is(err, stream.ErrEmptyMessage) {
		fmt.Fprintln(r.env.Stderr, WarningStyle.Render(err.Error()))
	}
	// Other failures were already reported through OnNotify.
	fmt.Fprintln(r.env.Stdout)
}

// command handles a slash command and reports whether to exit.
func (r *chatREPL) command(ctx context.Context, line string) bool {
	name, _, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/h":
		printChatHelp(r.env.Stdout)

	case "/history":
		msgs, err := r.cache.Read(ctx)
		if err != nil {
			fmt.Fprintf(r.env.Stderr, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
			return false
		}
		printMessages(r.env.Stdout, msgs, r.width)
		fmt.Fprintln(r.env.Stdout)

	case "/clear":
		answer, err := r.input.line.Prompt("Delete every message? [y/N]: ")
		if err != nil || !isYes(answer) {
			fmt.Fprintln(r.env.Stdout, DimStyle.Render("Cancelled."))
			return false
		}
		if err := r.cache.Clear(ctx); err != nil {
			fmt.Fprintf(r.env.Stderr, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
			return false
		}
		fmt.Fprintln(r.env.Stdout, SuccessStyle.Render("Conversation cleared."))

	default:
		fmt.Fprintf(r.env.Stderr, "%s unknown command %s (try /help)\n", WarningStyle.Render("[WARN]"), name)
	}
	return false
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

func printChatHelp(w io.Writer) {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/history", "Print the conversation"},
		{"/clear", "Delete every message"},
		{"/quit, /q", "Exit chat"},
	}
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s  %s\n", PromptStyle.Render(util.PadRight(c.cmd, 12)), DimStyle.Render(c.desc))
	}
	fmt.Fprintln(w, DimStyle.Render("  Ctrl+C stops a streaming reply, Ctrl+D exits"))
	fmt.Fprintln(w)
}
