// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// The Client streams /api/chat responses as newline-delimited JSON and
// implements stream.Source, so the chat manager can use a local Ollama
// server as its completion backend.
//
// # Key Types
//
//   - Client: HTTP client, health check, model listing and streaming chat
//   - StreamReader: NDJSON line parser
//   - ClientError: Typed errors (not running, timeout, model not found)
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      "http://127.0.0.1:11434",
//	    DefaultModel: "llama3.2",
//	})
//	mgr := session.NewManager(client, session.DefaultConfig())
package ollama
