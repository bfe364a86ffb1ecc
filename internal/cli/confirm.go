// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrConfirmationRequired is returned when a destructive action needs
// --confirm and no prompt is possible.
var ErrConfirmationRequired = errors.New("confirmation required: use --confirm")

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// ConfirmFlag indicates --confirm was passed (skip the prompt).
	ConfirmFlag bool
	// JSONMode forbids interactive prompts.
	JSONMode bool
	// Interactive reports whether in is a terminal.
	Interactive bool
}

// RequireConfirmation checks that the user has confirmed a destructive
// action:
//
//  1. --confirm proceeds without prompting
//  2. JSON mode or a non-terminal stdin fails with ErrConfirmationRequired
//  3. otherwise the user is asked on out and answers on in
func RequireConfirmation(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode || !opts.Interactive {
		return false, ErrConfirmationRequired
	}

	fmt.Fprintf(out, "%s %s? [y/N]: ", WarningStyle.Render("Are you sure you want to"), action)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}
