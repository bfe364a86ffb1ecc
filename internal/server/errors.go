// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ValidationError is returned for bad or missing request input.
// It never has side effects.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// errBodyTooLarge is reported with 413 instead of 400.
var errBodyTooLarge = errors.New("request body too large")

// decodeJSON decodes a request body into v, mapping failures to
// ValidationError or errBodyTooLarge.
func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errBodyTooLarge
		case errors.Is(err, io.EOF):
			return &ValidationError{Message: "request body is empty"}
		default:
			return &ValidationError{Message: "invalid JSON body"}
		}
	}
	return nil
}
