// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// This package defines the core domain types shared by the history store,
// the streaming session, the chat manager and the persistence layer.
//
// # Key Types
//
//   - Message: Single entry with id, role, content and preamble/important flags
//   - Role: Message role enumeration (system, user, assistant)
//   - Error: Typed error with a Kind, matched through errors.Is
//
// # Chat Identifiers
//
// Chats are keyed by the UTC creation time formatted as YYYYMMDDHHMMSS.
// Sorting those ids numerically in descending order lists the newest chat
// first:
//
//	ids := []string{"20240115093000", "20240301120000"}
//	model.SortChatIDs(ids) // ["20240301120000", "20240115093000"]
//
// Ids in any other shape are accepted as opaque keys but are ignored by
// date-based features such as stale chat detection.
package model
