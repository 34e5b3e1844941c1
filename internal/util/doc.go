// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storage and config layers.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file replacement with fsync and rename
//   - TruncateWidth, PadWidth: Terminal-width aware text fitting
//   - SingleLine: Collapse line breaks for list rows
package util
