// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mychat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ChatConfig: Backend, model, token limit and preamble
//   - UIConfig: shift_send, mute_sound and show_preamble preferences
//   - Watcher: Reloads the config file when it changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MYCHAT_*, OPENAI_API_KEY)
//   - ~/.mychat/config.toml
//   - ~/.mychat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.StreamTimeout()
package config
