// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats to disk.
//
// Two interchangeable backends implement Store:
//
//   - FileStore: one JSON document per chat, written atomically
//   - SQLiteStore: chats and messages tables in a pure Go SQLite database
//
// Both preserve message order, ids and flags exactly, and return
// ErrChatNotFound for unknown ids.
//
// # Usage
//
//	store, err := storage.Open(cfg.Store, cfg.DataDir, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
