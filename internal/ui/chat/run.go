// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/history"
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/stream"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// Config wires the chat screen to a server.
type Config struct {
	Chat  stream.ChatOpener
	Cache *history.Cache

	ServerURL string
	Markdown  bool
	Draft     string

	Logger *slog.Logger
}

// programRef forwards callbacks from other goroutines into the program.
// Messages sent before the program exists are dropped; the initial history
// load covers them.
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) set(p *tea.Program) {
	r.mu.Lock()
	r.p = p
	r.mu.Unlock()
}

func (r *programRef) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Run shows the chat screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var ref programRef
	consumer := stream.New(cfg.Chat, cfg.Cache, stream.Options{
		OnState:  func(s stream.State) { ref.send(stateMsg(s)) },
		OnNotify: func(n stream.Notification) { ref.send(notifyMsg(n)) },
		Logger:   cfg.Logger,
	})
	cfg.Cache.OnChange(func(msgs []model.Message) {
		ref.send(historyMsg{Messages: msgs})
	})

	m := New(consumer, cfg.Cache, Options{
		Context:   ctx,
		Theme:     styles.NewTheme(),
		ServerURL: cfg.ServerURL,
		Markdown:  cfg.Markdown,
		Draft:     cfg.Draft,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	ref.set(p)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	cfg.Logger.Debug("TUI_START", "server", cfg.ServerURL)
	_, err := p.Run()

	consumer.Stop()
	cfg.Cache.Wait()
	cfg.Logger.Debug("TUI_EXIT", "error", err)
	return err
}
