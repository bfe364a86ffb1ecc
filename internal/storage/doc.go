// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides message persistence for the chat server.
//
// Messages live in a single SQLite table. Ids come from an AUTOINCREMENT
// key, so they are strictly increasing in creation order and are never
// reused, even after the table is cleared.
//
// # Usage
//
//	store, err := storage.Open(ctx, "~/.streamchat/messages.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	msg, err := store.Create(ctx, model.RoleUser, "hello")
//	msgs, err := store.List(ctx)
//	err = store.Clear(ctx)
//
// All failures are returned as *PersistenceError and match ErrPersistence
// under errors.Is.
package storage
