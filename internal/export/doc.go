// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides chat export functionality for mychat.
//
// Chats are exported from manager snapshots, so an export never waits on a
// reply that is still streaming.
//
// # Key Types
//
//   - Format: export format (Markdown, JSON)
//   - Exporter: converts a session.Chat to bytes
//   - Options: metadata, timestamps and preamble selection
//
// # Usage
//
//	chat, _ := mgr.Chat(id)
//	exporter, _ := export.New(export.FormatMarkdown, opts)
//	path, err := export.ExportToFile(chat, exporter, opts)
package export
