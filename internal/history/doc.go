// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides the ordered per-chat message store.
//
// A History keeps messages in conversation order with unique ids, and
// supports append, delete, in-place edit and importance flagging. Missing ids
// fail with model.ErrNotFound and repeated ids with model.ErrDuplicateID.
//
// # Usage
//
//	h, _ := history.New(model.NewPreamble("You are a helpful assistant."))
//	h.IsEmpty() // true, the preamble does not count
//	_ = h.Append(model.NewUserMessage("hi"))
//	last, _ := h.LastNonPreamble()
package history
