// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import "time"

// DefaultSummary labels a chat until the user renames it.
const DefaultSummary = "New chat"

// ChatRecord is the persisted form of a chat. Messages are kept in
// conversation order. Streaming state is never persisted.
type ChatRecord struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary"`
	Draft     string    `json:"draft,omitempty"`
	Messages  []Message `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}
