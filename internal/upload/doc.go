// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload submits large text files to a chat in parts.
//
// Content is split into parts of at most ChunkSize characters. The uploader
// sends an intro message, one "Part i of name" message per part and an outro
// message asking the model to confirm how many parts it received. Messages
// are paced with a token bucket when an interval is configured.
package upload
