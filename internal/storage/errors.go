// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

// ErrPersistence is matched by every error returned from the store.
var ErrPersistence = errors.New("persistence error")

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("store closed")

// PersistenceError wraps an underlying storage failure.
type PersistenceError struct {
	Op  string // list, create, clear, count, open
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPersistence) true for all store errors.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
