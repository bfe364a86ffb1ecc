// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/stream"
)

// historyMsg carries the cached message list. err is set when the initial
// load failed.
type historyMsg struct {
	Messages []model.Message
	Err      error
}

// stateMsg carries the consumer's live exchange state.
type stateMsg stream.State

// notifyMsg carries a failure report from the consumer.
type notifyMsg stream.Notification

// sendDoneMsg is returned when Consumer.Send returns.
type sendDoneMsg struct {
	Err error
}

// clearDoneMsg is returned when the history clear request finishes.
type clearDoneMsg struct {
	Err error
}

// toastExpiredMsg removes toast ID if it is still shown.
type toastExpiredMsg struct {
	ID int
}
