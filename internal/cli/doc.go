// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the mychat command line.
//
// Every command is built on the same App: configuration, a rotating log file,
// the chat store, the completion backend and a loaded session manager.
//
// # Key Types
//
//   - App: wiring shared by all commands, built by OpenApp
//   - REPL: line-oriented chat over the session manager
//   - Confirmer: prompt for destructive commands with a --confirm escape
//   - ValidationError: user input problems, mapped to exit code 2
//
// # Usage
//
// The binary's main function only runs the command tree:
//
//	func main() {
//	    os.Exit(cli.Execute())
//	}
//
// # Commands Overview
//
//   - tui (default): full-screen chat
//   - chat: line-oriented chat with slash commands
//   - list, clear, prune: manage saved chats
//   - config show|init|get|set|path: manage the config file
//   - models: list the backend's models
//   - version: build information
package cli
