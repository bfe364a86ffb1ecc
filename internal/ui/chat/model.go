// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/stream"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// Suggestions are offered on the empty screen and sent with keys 1-4.
var Suggestions = []string{
	"Explain quantum computing",
	"Write a Python script",
	"Draft an email",
	"Design a logo",
}

const (
	// DefaultToastDuration is how long a notification stays visible.
	DefaultToastDuration = 4 * time.Second

	inputHeight = 3
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Sender runs chat exchanges. *stream.Consumer implements it.
type Sender interface {
	Send(ctx context.Context, content string) error
	Stop()
}

// History reads and clears the conversation. *history.Cache implements it.
type History interface {
	Read(ctx context.Context) ([]model.Message, error)
	Clear(ctx context.Context) error
}

// Options configures the chat screen.
type Options struct {
	// Context bounds every request the screen starts. Defaults to Background.
	Context context.Context

	Theme     *styles.Theme
	ServerURL string

	// Markdown renders persisted assistant messages with glamour.
	Markdown bool

	// Draft pre-fills the composer.
	Draft string

	ToastDuration time.Duration
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx     context.Context
	sender  Sender
	history History

	theme *styles.Theme
	keys  KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Conversation as last published by the history cache
	messages []model.Message
	loaded   bool
	loadErr  error

	// Live exchange
	live        stream.State
	streamStart time.Time
	sending     bool // between Enter and the end of Send

	// New chat requires a second Ctrl+N
	confirmClear bool
	clearing     bool

	toast         *toast
	toastSeq      int
	toastDuration time.Duration

	markdown  *markdownRenderer
	serverURL string

	// follow keeps the viewport pinned to the bottom while content grows
	follow bool
}

// New creates the chat screen.
func New(sender Sender, history History, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Theme == nil {
		opts.Theme = styles.NewTheme()
	}
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = DefaultToastDuration
	}
	theme := opts.Theme
	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = theme.InputPlaceholder
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	ta.BlurredStyle = ta.FocusedStyle
	ta.KeyMap.InsertNewline = keys.Newline
	if opts.Draft != "" {
		ta.SetValue(opts.Draft)
	}
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubbles()
	sp.Style = theme.Spinner

	var md *markdownRenderer
	if opts.Markdown {
		md = newMarkdownRenderer(theme.IsDark)
	}

	return Model{
		ctx:           opts.Context,
		sender:        sender,
		history:       history,
		theme:         theme,
		keys:          keys,
		viewport:      viewport.New(80, 20),
		input:         ta,
		spinner:       sp,
		messages:      []model.Message{},
		toastDuration: opts.ToastDuration,
		markdown:      md,
		serverURL:     opts.ServerURL,
		follow:        true,
	}
}

// Init starts the cursor blink, the spinner and the initial history load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.loadHistory())
}

// Streaming reports whether an exchange is in flight.
func (m Model) Streaming() bool {
	return m.sending || m.live.IsStreaming
}

// Messages returns the conversation as last received.
func (m Model) Messages() []model.Message {
	return m.messages
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.history.Read(m.ctx)
		return historyMsg{Messages: msgs, Err: err}
	}
}

func (m Model) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{Err: m.sender.Send(m.ctx, content)}
	}
}

// stopCmd stops the exchange off the Update goroutine; the consumer
// publishes its reset state through the program, which would block here.
func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		m.sender.Stop()
		return nil
	}
}

func (m Model) clearCmd() tea.Cmd {
	return func() tea.Msg {
		return clearDoneMsg{Err: m.history.Clear(m.ctx)}
	}
}
