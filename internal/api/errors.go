// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NetworkError is returned when a request could not complete at the
// transport level.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is returned for a non-2xx response. Message is the server's
// structured message when it sent one.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// maxErrorBody caps how much of an error body is read.
const maxErrorBody = 64 * 1024

// statusError builds a StatusError from resp, reading at most maxErrorBody
// bytes of a `{"message": ...}` body.
func statusError(resp *http.Response) *StatusError {
	serr := &StatusError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return serr
	}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		serr.Message = body.Message
	} else if !strings.Contains(resp.Header.Get("Content-Type"), "json") {
		serr.Message = strings.TrimSpace(string(data))
	}
	return serr
}
