// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection and orchestrates streaming.
//
// The Manager is the only writer of chat state. It creates, switches and
// deletes chats, applies history edits, and runs at most one streaming
// session per chat. Fragments from completion sources are applied by the
// same lock as user operations, so each chat sees one ordered sequence of
// changes.
//
// # Key Types
//
//   - Manager: Chat collection, active chat pointer and streaming sessions
//   - Chat: Read-only snapshot consumed by the view package
//   - Event: Started, fragment, completed, aborted, errored and updated
//   - Store: Persistence collaborator implemented by the storage package
//
// # Usage
//
//	mgr := session.NewManager(source, session.DefaultConfig())
//	defer mgr.Close()
//
//	events, cancel := mgr.Subscribe()
//	defer cancel()
//
//	id, _ := mgr.CreateChat("You are a helpful assistant.")
//	_, _ = mgr.Submit(id, "hello", model.RoleUser)
//	_, _ = mgr.RequestCompletion(id)
//
//	for ev := range events {
//	    if ev.Kind.Terminal() {
//	        break
//	    }
//	}
//
// Aborting discards the partial reply and raises EventAborted without an
// error. An upstream failure discards it too and raises EventErrored with
// an error matching model.ErrUpstream.
package session
