// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type toastKind int

const (
	toastError toastKind = iota
	toastWarning
	toastSuccess
)

// toast is a one-line notification that expires on its own.
type toast struct {
	ID   int
	Kind toastKind
	Text string
}

// showToast replaces the current toast and schedules its expiry.
func (m *Model) showToast(kind toastKind, text string) tea.Cmd {
	m.toastSeq++
	id := m.toastSeq
	m.toast = &toast{ID: id, Kind: kind, Text: text}
	return tea.Tick(m.toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{ID: id}
	})
}

func (m *Model) dismissToast(id int) {
	if m.toast != nil && m.toast.ID == id {
		m.toast = nil
	}
}

func (m Model) renderToast() string {
	if m.toast == nil {
		return ""
	}
	style := m.theme.ToastError
	switch m.toast.Kind {
	case toastWarning:
		style = m.theme.ToastWarning
	case toastSuccess:
		style = m.theme.ToastSuccess
	}
	return style.Render(truncate(m.toast.Text, m.width-2))
}
