// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the chat server and
// its clients.
//
// # Key Types
//
//   - Message: a persisted (or optimistically appended) chat message
//   - Role: message role enumeration (user, assistant, system)
//
// # Usage
//
// Parse a role from untrusted input:
//
//	role, err := model.ParseRole(req.Role)
//	if err != nil {
//	    return err
//	}
//
// Build a client-side placeholder that will be replaced on the next refetch:
//
//	msg := model.NewTransientMessage(model.RoleUser, "hello")
package model
