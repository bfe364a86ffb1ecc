// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/streamchat/internal/api"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/stream"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments.
	ExitUsageError = 2
	// ExitConfigError indicates a config file or settings error.
	ExitConfigError = 3
	// ExitServerError indicates the server answered with an error status.
	ExitServerError = 4
	// ExitNetworkError indicates the server could not be reached.
	ExitNetworkError = 5
	// ExitTimeoutError indicates an operation timed out.
	ExitTimeoutError = 8
	// ExitInterrupted follows the shell convention for SIGINT.
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command failure with context.
type CommandError struct {
	Command string // e.g. "config"
	Action  string // e.g. "set"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError represents invalid user input on the command line.
type UsageError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ConfigError wraps a failure to load or save the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrUnknownSubcommand creates an error for an unrecognised subcommand.
func ErrUnknownSubcommand(command, sub string, valid []string) error {
	return &UsageError{
		Field:   command + " subcommand",
		Value:   sub,
		Reason:  "unknown subcommand",
		Example: "one of: " + strings.Join(valid, ", "),
	}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes err in a consistent format. In JSON mode the error
// becomes a JSONResponse on w; otherwise a styled line on w.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usageErr    *UsageError
		configErr   *ConfigError
		validateErr config.ValidateErrors
		fieldErr    config.ValidationError
		statusErr   *api.StatusError
		networkErr  *api.NetworkError
		ttyErr      *TTYRequiredError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, stream.ErrStopped):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &usageErr), errors.As(err, &ttyErr), errors.Is(err, stream.ErrEmptyMessage):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &validateErr), errors.As(err, &fieldErr):
		return ExitConfigError
	case errors.As(err, &statusErr):
		return ExitServerError
	case errors.As(err, &networkErr):
		return ExitNetworkError
	}

	// Abrupt end of a reply stream.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ExitNetworkError
	}
	return ExitGeneralError
}
