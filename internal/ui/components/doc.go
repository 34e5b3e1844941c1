// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the chat TUI.

Components are plain structs with a View method. They hold no references to
the chat manager; the chat model copies snapshots into them before rendering.

# Key Types

  - StatusBar: Bottom line with status, model name and key hints
  - Sidebar: Chat list with the active chat highlighted
  - Status: Application status shown in the status bar

# Usage

	bar := components.NewStatusBar(theme)
	bar.ModelName = cfg.Chat.Model
	bar.SetStatus(components.StatusStreaming)
	footer := bar.View()
*/
package components
