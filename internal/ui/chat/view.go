// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/ui/styles"
	"github.com/jeranaias/streamchat/internal/util"
)

const disclaimer = "AI can make mistakes. Consider checking important information."

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderToast(),
		m.renderComposer(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("streamchat")

	var right string
	switch {
	case m.Streaming():
		right = m.theme.ThinkingText.Render("streaming " + m.spinner.View())
	case m.loaded:
		right = m.theme.HeaderSubtitle.Render(countLabel(len(m.messages)))
	}

	room := m.width - lipgloss.Width(title) - lipgloss.Width(right) - 4
	subtitle := ""
	if room > 3 && m.serverURL != "" {
		subtitle = " " + m.theme.HeaderSubtitle.Render(truncate(m.serverURL, room-1))
	}

	left := title + subtitle
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 message"
	}
	return fmt.Sprintf("%d messages", n)
}

// =============================================================================
// CONVERSATION
// =============================================================================

func (m Model) showingEmptyState() bool {
	return m.loaded && len(m.messages) == 0 && !m.Streaming()
}

func (m Model) renderConversation() string {
	if !m.loaded && !m.Streaming() {
		if m.loadErr != nil {
			return m.theme.PendingMessage.Render("Could not load the conversation. Is the server running at " + m.serverURL + "?")
		}
		return m.spinner.View() + " " + m.theme.ThinkingText.Render("Loading conversation...")
	}
	if m.showingEmptyState() {
		return m.renderEmptyState()
	}

	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	if m.Streaming() {
		if len(m.messages) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderLiveReply())
	}
	return b.String()
}

func (m Model) renderMessage(msg model.Message) string {
	var label lipgloss.Style
	var bubble lipgloss.Style
	switch msg.Role {
	case model.RoleUser:
		label, bubble = m.theme.UserLabel, m.theme.UserBubble
	case model.RoleAssistant:
		label, bubble = m.theme.AssistantLabel, m.theme.AssistantBubble
	default:
		label, bubble = m.theme.SystemLabel, m.theme.SystemBubble
	}

	header := label.Render(msg.Role.DisplayName())
	switch {
	case msg.Transient():
		header += " " + m.theme.PendingMessage.Render("sending")
	case !msg.CreatedAt.IsZero():
		header += " " + m.theme.Timestamp.Render(msg.CreatedAt.Local().Format("15:04"))
	}

	width := m.contentWidth()
	if msg.Role == model.RoleAssistant && !msg.Transient() {
		if out, ok := m.markdown.Render(msg.ID, msg.Content); ok {
			return header + "\n" + bubble.Render(out)
		}
	}
	return header + "\n" + bubble.Width(width).Render(msg.Content)
}

// renderLiveReply renders the reply being streamed, or a thinking
// indicator until the first fragment arrives.
func (m Model) renderLiveReply() string {
	header := m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())
	if m.live.PartialContent == "" {
		return header + "\n" + m.theme.AssistantBubble.Render(m.spinner.View()+" "+m.theme.ThinkingText.Render("Thinking"))
	}
	body := m.live.PartialContent + m.theme.StreamingCursor.Render(m.cursor())
	return header + "\n" + m.theme.AssistantBubble.Width(m.contentWidth()).Render(body)
}

// cursor blinks from the start of the current reply.
func (m Model) cursor() string {
	return styles.CursorFrame(time.Since(m.streamStart))
}

func (m Model) renderEmptyState() string {
	lines := []string{
		m.theme.EmptyTitle.Render("How can I help you today?"),
		m.theme.EmptySubtitle.Render(truncate("Ask a question, write code or draft some text.", m.viewport.Width-2)),
	}
	for i, s := range Suggestions {
		lines = append(lines, m.theme.SuggestionKey.Render(fmt.Sprint(i+1))+m.theme.SuggestionText.Render(s))
	}
	block := lipgloss.JoinVertical(lipgloss.Left, lines...)

	top := max((m.viewport.Height-lipgloss.Height(block))/2, 0)
	return strings.Repeat("\n", top) + lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Center, block)
}

// contentWidth is the wrap width of message bodies.
func (m Model) contentWidth() int {
	w := m.width - 4
	if m.theme.GetLayoutMode() == styles.LayoutWide {
		w = min(w, 100)
	}
	return max(w, 20)
}

// =============================================================================
// COMPOSER AND STATUS BAR
// =============================================================================

func (m Model) renderComposer() string {
	style := m.theme.InputContainerFocused
	if m.Streaming() {
		style = m.theme.InputContainer
	}
	return style.Width(max(m.width-2, 10)).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	bindings := m.keys.ShortHelp()
	if m.Streaming() {
		bindings = m.keys.StreamingHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, renderBinding(m.theme, b))
	}
	if m.showingEmptyState() {
		parts = append(parts, renderBinding(m.theme, m.keys.Suggest))
	}
	bar := strings.Join(parts, "  ")

	if m.theme.GetLayoutMode() == styles.LayoutWide {
		gap := m.width - lipgloss.Width(bar) - util.StringWidth(disclaimer) - 4
		if gap > 0 {
			bar += strings.Repeat(" ", gap) + m.theme.ShortcutDesc.Render(disclaimer)
		}
	}
	return m.theme.StatusBar.Width(m.width).Render(bar)
}

func renderBinding(theme *styles.Theme, b key.Binding) string {
	h := b.Help()
	return theme.ShortcutKey.Render(h.Key) + " " + theme.ShortcutDesc.Render(h.Desc)
}

// truncate shortens s to width display columns.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return util.TruncateWidth(s, width)
}
