// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/streamchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// ParseRole converts s to a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be user, assistant or system", s)
	}
	return r, nil
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat message.
//
// Persisted messages have positive ids assigned by the store in creation
// order and are never modified. Client-side placeholders use negative ids.
type Message struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTransientMessage creates a message that has not been persisted yet.
// Its id is the negated local clock in nanoseconds.
func NewTransientMessage(role Role, content string) Message {
	now := time.Now()
	return Message{
		ID:        -now.UnixNano(),
		Role:      role,
		Content:   content,
		CreatedAt: now.UTC(),
	}
}

// Transient reports whether the message only exists on the client.
func (m Message) Transient() bool {
	return m.ID < 0
}

// Preview returns the first maxLen runes of the content on a single line.
func (m Message) Preview(maxLen int) string {
	s := strings.Join(strings.Fields(m.Content), " ")
	if maxLen <= 0 {
		return s
	}
	return util.TruncateRunes(s, maxLen)
}
