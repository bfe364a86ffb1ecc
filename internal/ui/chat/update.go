// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/streamchat/internal/stream"
	"github.com/jeranaias/streamchat/internal/util"
)

// Update handles a message and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case historyMsg:
		if msg.Err != nil {
			m.loadErr = msg.Err
			m.refresh()
			return m, m.showToast(toastError, "Failed to load conversation: "+msg.Err.Error())
		}
		m.messages = msg.Messages
		m.loaded = true
		m.loadErr = nil
		m.refresh()
		return m, nil

	case stateMsg:
		if msg.IsStreaming && !m.live.IsStreaming {
			m.streamStart = time.Now()
		}
		m.live = stream.State(msg)
		m.refresh()
		return m, nil

	case notifyMsg:
		return m, m.showToast(toastError, msg.Title+": "+util.FirstLine(msg.Description))

	case sendDoneMsg:
		m.sending = false
		m.refresh()
		if errors.Is(msg.Err, stream.ErrEmptyMessage) {
			return m, m.showToast(toastWarning, "Message is empty")
		}
		// Other failures arrive as notifyMsg.
		return m, nil

	case clearDoneMsg:
		m.clearing = false
		if msg.Err != nil {
			return m, m.showToast(toastError, "Failed to clear history: "+msg.Err.Error())
		}
		return m, m.showToast(toastSuccess, "Conversation cleared")

	case toastExpiredMsg:
		m.dismissToast(msg.ID)
		if m.toast == nil {
			m.confirmClear = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.Streaming() || !m.loaded {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.NewChat) {
		m.confirmClear = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if !m.Streaming() {
			return m, nil
		}
		// Drop the partial reply at once; the consumer's reset follows.
		m.live = stream.State{}
		m.sending = false
		m.refresh()
		return m, m.stopCmd()

	case key.Matches(msg, m.keys.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		m.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		m.follow = true
		return m, nil

	case key.Matches(msg, m.keys.Suggest) && m.showingEmptyState() && strings.TrimSpace(m.input.Value()) == "":
		i := int(msg.Runes[0] - '1')
		return m.send(Suggestions[i])

	case key.Matches(msg, m.keys.Send):
		content := m.input.Value()
		if strings.TrimSpace(content) == "" || m.Streaming() {
			return m, nil
		}
		m.input.Reset()
		return m.send(content)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) send(content string) (tea.Model, tea.Cmd) {
	m.sending = true
	m.follow = true
	m.refresh()
	return m, m.sendCmd(content)
}

// newChat asks for confirmation on the first press and clears the
// conversation on the second.
func (m Model) newChat() (tea.Model, tea.Cmd) {
	if m.clearing {
		return m, nil
	}
	if !m.confirmClear {
		m.confirmClear = true
		return m, m.showToast(toastWarning, "Start a new chat? Press Ctrl+N again to clear the conversation")
	}

	m.confirmClear = false
	m.clearing = true
	m.toast = nil
	cmds := []tea.Cmd{m.clearCmd()}
	if m.Streaming() {
		m.live = stream.State{}
		m.sending = false
		cmds = append([]tea.Cmd{m.stopCmd()}, cmds...)
	}
	m.refresh()
	return m, tea.Sequence(cmds...)
}

// resize lays out the components for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
	m.theme.SetSize(width, height)

	m.input.SetWidth(max(width-6, 10))

	// header + toast + composer (with border) + status bar
	chrome := 1 + 1 + (inputHeight + 2) + 1
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 3)

	if m.markdown != nil {
		m.markdown.SetWidth(m.contentWidth())
	}
	m.refresh()
}

// refresh re-renders the conversation into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	if m.follow {
		m.viewport.GotoBottom()
	}
}
