// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"
	"time"
)

// Echo streams the last user message back with its runes reversed.
//
// Fragments are cut every ChunkBytes bytes regardless of rune boundaries,
// so a multi-byte character can be split across two fragments.
type Echo struct {
	ChunkBytes int           // default 4
	Delay      time.Duration // pause between fragments
}

// Name implements Provider.
func (e *Echo) Name() string {
	return "echo"
}

// Ping implements Pinger.
func (e *Echo) Ping(ctx context.Context) error {
	return nil
}

// StreamChat implements Provider.
func (e *Echo) StreamChat(ctx context.Context, messages []Message, onFragment FragmentFunc) error {
	reply := Reverse(lastUserContent(messages))

	size := e.ChunkBytes
	if size <= 0 {
		size = 4
	}

	for start := 0; start < len(reply); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(reply))
		if err := onFragment(reply[start:end]); err != nil {
			return err
		}
		if e.Delay > 0 && end < len(reply) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.Delay):
			}
		}
	}
	return nil
}

// Reverse returns s with its runes in reverse order.
func Reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
