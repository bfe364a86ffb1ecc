// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jeranaias/streamchat/internal/model"
)

// JSONResponse is the envelope every --json command writes.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data any `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC 3339 time the response was generated
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful JSON response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response, indented, to w.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// OutputJSON runs handler and, in JSON mode, wraps its result in a
// JSONResponse on w. Outside JSON mode the handler prints for itself.
// Errors are returned unprinted; DisplayError reports them once.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (any, error)) error {
	data, err := handler()
	if err != nil || !jsonMode {
		return err
	}
	return NewJSONResponse(command, data).Write(w)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// VersionData is returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// AskData is returned by the ask command.
type AskData struct {
	Question   string `json:"question"`
	Response   string `json:"response"`
	Server     string `json:"server"`
	DurationMs int64  `json:"duration_ms"`
}

// HistoryData is returned by the history command.
type HistoryData struct {
	Messages []model.Message `json:"messages"`
	Count    int             `json:"count"`
	Total    int             `json:"total"`
}

// ClearData is returned by the clear command.
type ClearData struct {
	Cleared bool   `json:"cleared"`
	Server  string `json:"server"`
}

// StatusData is returned by the status command.
type StatusData struct {
	Server         string `json:"server"`
	Reachable      bool   `json:"reachable"`
	Status         string `json:"status,omitempty"`
	Version        string `json:"version,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ProviderStatus string `json:"provider_status,omitempty"`
	Messages       int    `json:"messages"`
	LatencyMs      int64  `json:"latency_ms"`
}

// ConfigPathData is returned by config path and config init.
type ConfigPathData struct {
	Path    string `json:"path"`
	Exists  bool   `json:"exists"`
	Written bool   `json:"written,omitempty"`
}

// ConfigValueData is returned by config get and config set.
type ConfigValueData struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
