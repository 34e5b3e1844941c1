// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the roles a chat history may hold.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ParseRole converts user input such as "user" or "Assistant" to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "system", "System", "preamble":
		return RoleSystem, true
	case "user", "User":
		return RoleUser, true
	case "assistant", "Assistant", "bot":
		return RoleAssistant, true
	}
	return "", false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a chat history.
//
// Messages are plain values; the history that owns them hands out copies, so
// mutating a Message returned from a snapshot never changes stored state.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// IsPreamble marks the system message a chat is seeded with.
	IsPreamble bool `json:"is_preamble,omitempty"`

	// IsImportant is a user-toggled highlight with no effect on the conversation.
	IsImportant bool `json:"is_important,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewPreamble creates the system message a chat starts with.
func NewPreamble(content string) Message {
	msg := NewMessage(RoleSystem, content)
	msg.IsPreamble = true
	return msg
}

// NewMessageID returns a fresh, globally unique message ID.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}
