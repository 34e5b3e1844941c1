// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai streams chat completions from OpenAI-compatible APIs.
//
// # Key Types
//
//   - Client: stream.Source backed by github.com/sashabaranov/go-openai
//
// # Usage
//
//	client, err := openai.NewClient(openai.Config{APIKey: key})
//	if err != nil {
//	    return err
//	}
//	mgr := session.NewManager(client, session.DefaultConfig())
package openai
