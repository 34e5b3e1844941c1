// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation handling for destructive mychat commands.
//
// The pattern is:
//   1. If --confirm flag is present, proceed without prompting
//   2. If stdin is not a TTY, require --confirm flag (can't prompt)
//   3. Otherwise, show interactive prompt for confirmation

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrConfirmationRequired is returned when a prompt is needed but impossible.
var ErrConfirmationRequired = errors.New("confirmation required but stdin is not a terminal; use --confirm flag")

// Confirmer asks the user to approve destructive actions.
type Confirmer struct {
	In  io.Reader
	Out io.Writer

	// Interactive reports whether In can be prompted.
	Interactive func() bool
}

// RequireConfirmation reports whether the user confirmed action.
//
// Confirmation flow:
//  1. If confirmFlag is true (--confirm), return true immediately
//  2. If input is not interactive, return ErrConfirmationRequired
//  3. Otherwise, show the details and an interactive prompt
func (c Confirmer) RequireConfirmation(confirmFlag bool, action string, details []string) (bool, error) {
	if confirmFlag {
		return true, nil
	}
	if c.Interactive == nil || !c.Interactive() {
		return false, ErrConfirmationRequired
	}

	fmt.Fprintln(c.Out)
	if len(details) > 0 {
		fmt.Fprintln(c.Out, WarningStyle.Render("WARNING: Destructive Action"))
		fmt.Fprintln(c.Out, rule(50))
		for _, d := range details {
			fmt.Fprintf(c.Out, "  %s\n", d)
		}
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, ErrorStyle.Render("This action cannot be undone."))
	}
	fmt.Fprintf(c.Out, "Are you sure you want to %s? [y/N]: ", action)

	input, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && input == "" {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// ShowCancellationMessage displays a standard cancellation message.
func ShowCancellationMessage(w io.Writer) {
	fmt.Fprintln(w, DimStyle.Render("Cancelled."))
}
