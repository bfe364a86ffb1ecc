// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/stream"
)

// streamPrinter writes a streamed reply to w as it grows. It is used as a
// consumer's OnState callback.
//
// PartialContent only ever grows during an exchange, so the unprinted tail
// is everything past the byte offset already written. The empty state the
// consumer publishes when an exchange ends is ignored, leaving Content with
// the full reply.
type streamPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
	content string
}

func newStreamPrinter(w io.Writer) *streamPrinter {
	return &streamPrinter{w: w}
}

// OnState prints the part of s.PartialContent not yet written.
func (p *streamPrinter) OnState(s stream.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(s.PartialContent) <= p.printed {
		return
	}
	io.WriteString(p.w, s.PartialContent[p.printed:])
	p.printed = len(s.PartialContent)
	p.content = s.PartialContent
}

// Reset prepares the printer for the next exchange.
func (p *streamPrinter) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = 0
	p.content = ""
}

// Content returns the reply printed so far.
func (p *streamPrinter) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.content
}

// Printed reports whether any text has been written since the last Reset.
func (p *streamPrinter) Printed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printed > 0
}

// printMessages writes msgs as a transcript, wrapping content to width.
func printMessages(w io.Writer, msgs []model.Message, width int) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No messages yet."))
		return
	}
	for i, msg := range msgs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		header := RenderRole(msg.Role)
		if !msg.CreatedAt.IsZero() {
			header += " " + DimStyle.Render(msg.CreatedAt.Local().Format("Jan 2 15:04"))
		}
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, WrapText(strings.TrimRight(msg.Content, "\n"), width))
	}
}
