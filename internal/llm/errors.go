// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"errors"
	"fmt"
)

// ErrorType categorizes provider errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeAuth
	ErrTypeRateLimited
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// String returns a short name for logs.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotRunning:
		return "not_running"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeModelNotFound:
		return "model_not_found"
	case ErrTypeAuth:
		return "auth"
	case ErrTypeRateLimited:
		return "rate_limited"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ErrIdleTimeout is the cancellation cause when a stream stalls.
var ErrIdleTimeout = errors.New("provider stream idle timeout")

// ProviderError is returned when a model call fails.
type ProviderError struct {
	Provider string
	Type     ErrorType
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = fmt.Sprintf("%s: %s", e.Provider, msg)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsProviderError reports whether err is (or wraps) a ProviderError and
// returns it.
func IsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
