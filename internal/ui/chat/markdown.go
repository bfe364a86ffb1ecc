// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders persisted assistant messages. Persisted
// messages never change, so output is cached per id until the width
// changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[int64]string
}

func newMarkdownRenderer(dark bool) *markdownRenderer {
	style := "light"
	if dark {
		style = "dark"
	}
	return &markdownRenderer{style: style, cache: make(map[int64]string)}
}

// SetWidth rebuilds the renderer for a new wrap width.
func (r *markdownRenderer) SetWidth(width int) {
	if width == r.width && r.renderer != nil {
		return
	}
	r.width = width
	r.cache = make(map[int64]string)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Plain text is shown instead.
		r.renderer = nil
		return
	}
	r.renderer = renderer
}

// Render returns content as styled markdown, or ok=false when it could
// not be rendered.
func (r *markdownRenderer) Render(id int64, content string) (string, bool) {
	if r == nil || r.renderer == nil {
		return "", false
	}
	if out, ok := r.cache[id]; ok {
		return out, true
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return "", false
	}
	out = strings.Trim(out, "\n")
	if id > 0 {
		r.cache[id] = out
	}
	return out, true
}
