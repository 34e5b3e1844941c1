// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream drives one in-flight assistant completion.
//
// # Key Types
//
//   - Session: idle, streaming, finalizing, aborted and errored states
//   - Source: asynchronous fragment producer (Ollama, OpenAI-compatible APIs)
//   - Chunk: one fragment, the completion signal, or an error
//
// # Lifecycle
//
//	s := stream.NewSession(chatID)
//	_ = s.Start(cancel)      // idle -> streaming
//	s.Apply("Hel")
//	s.Apply("lo")
//	msg, _ := s.Finalize()   // msg.Content == "Hello", fresh id
//
// Abort and Fail discard the partial content instead. Pump connects a Source
// to a delivery callback, usually the chat manager's reducer.
package stream
