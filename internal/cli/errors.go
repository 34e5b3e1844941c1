// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for mychat commands.
//
// Commands always return errors and let Execute display them and pick the
// exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/ollama"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the completion backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a chat or message was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrInvalidFormat creates an error for invalid format.
func ErrInvalidFormat(field, value, expected string) error {
	return &ValidationError{Field: field, Value: value, Reason: "invalid format", Example: expected}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes an error in the standard format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}

	var configErrs config.ValidateErrors
	if errors.As(err, &configErrs) {
		return ExitConfigError
	}

	switch {
	case errors.Is(err, model.ErrNotFound), ollama.IsModelNotFound(err):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded), ollama.IsTimeout(err):
		return ExitTimeoutError
	case ollama.IsNotRunning(err), errors.Is(err, model.ErrUpstream):
		return ExitNetworkError
	}
	return ExitGeneralError
}
