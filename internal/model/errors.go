// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorKind categorizes chat errors for handling.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindDuplicateID
	KindSessionActive
	KindUpstream
)

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindDuplicateID:
		return "duplicate id"
	case KindSessionActive:
		return "session already active"
	case KindUpstream:
		return "upstream stream error"
	default:
		return "unknown"
	}
}

// Error is returned by history, session and streaming operations.
// Use errors.Is with the sentinels below to check the kind.
type Error struct {
	Kind  ErrorKind
	Op    string // operation that failed, e.g. "history.delete"
	ID    string // chat or message id involved, if any
	Cause error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.ID != "" {
		msg += " (" + e.ID + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so callers can compare against
// the sentinels regardless of Op or ID.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for errors.Is checks.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrDuplicateID   = &Error{Kind: KindDuplicateID}
	ErrSessionActive = &Error{Kind: KindSessionActive}
	ErrUpstream      = &Error{Kind: KindUpstream}
)

// NotFound builds a KindNotFound error.
func NotFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, ID: id}
}

// DuplicateID builds a KindDuplicateID error.
func DuplicateID(op, id string) error {
	return &Error{Kind: KindDuplicateID, Op: op, ID: id}
}

// SessionActive builds a KindSessionActive error.
func SessionActive(op, chatID string) error {
	return &Error{Kind: KindSessionActive, Op: op, ID: chatID}
}

// Upstream wraps a completion source failure.
func Upstream(op, chatID string, cause error) error {
	return &Error{Kind: KindUpstream, Op: op, ID: chatID, Cause: cause}
}
