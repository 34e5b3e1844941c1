// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats to disk.
package storage

// =============================================================================
// ERRORS
// =============================================================================

// ErrChatNotFound is returned when a chat is not in the store.
// Use errors.Is(err, ErrChatNotFound) to check for this error.
var ErrChatNotFound = &ChatError{Message: "chat not found"}

// ErrInvalidID is returned for ids that cannot be used as storage keys.
var ErrInvalidID = &ChatError{Message: "invalid chat id"}

// ChatError represents a storage error that can be compared with errors.Is.
type ChatError struct {
	Message string
	ID      string
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.ID == "" {
		return e.Message
	}
	return e.Message + ": " + e.ID
}

// Is matches chat errors by message, ignoring the id.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

func notFound(id string) error {
	return &ChatError{Message: ErrChatNotFound.Message, ID: id}
}

func invalidID(id string) error {
	return &ChatError{Message: ErrInvalidID.Message, ID: id}
}
