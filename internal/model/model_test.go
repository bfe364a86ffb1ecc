// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "user", want: RoleUser},
		{in: "Assistant", want: RoleAssistant},
		{in: " system ", want: RoleSystem},
		{in: "tool", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMessage_JSONShape(t *testing.T) {
	msg := Message{
		ID:        7,
		Role:      RoleAssistant,
		Content:   "Hi there!",
		CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"role":"assistant","content":"Hi there!","createdAt":"2025-03-01T12:30:00Z"}`, string(data))
}

func TestNewTransientMessage(t *testing.T) {
	msg := NewTransientMessage(RoleUser, "ping")

	assert.True(t, msg.Transient())
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "ping", msg.Content)
	assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Second)

	persisted := Message{ID: 1}
	assert.False(t, persisted.Transient())
}

func TestMessage_Preview(t *testing.T) {
	msg := Message{Content: "hello\n  wide   world"}
	assert.Equal(t, "hello wide world", msg.Preview(0))
	assert.Equal(t, "hello w…", msg.Preview(8))
	assert.Equal(t, "he…", msg.Preview(3))
	assert.Equal(t, "hello wide world", msg.Preview(16))
}
