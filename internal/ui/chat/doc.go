// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the TUI.

The screen is a Bubble Tea model drawn over a session.Manager. It never
keeps chat state of its own: after every action, and after every event the
manager publishes, it takes a fresh snapshot of the chat list and the active
chat and renders from that.

# Key Components

## Model (model.go)

  - Sidebar with the chat list, toggled with ctrl+b
  - Viewport with the visible history and the reply being typed
  - Textarea whose draft is saved to the active chat on every change
  - Spinner while a reply streams and a progress bar while a file uploads

## Update Loop (update.go)

  - Keys: send, generate or regenerate, stop, new, delete and cycle chats
  - Slash commands: /new, /summary, /system, /star, /rm, /upload
  - Manager events, forwarded as EventMsg
  - Reloaded settings, delivered as SettingsMsg

## Streaming (streaming.go)

Fragments re-render the viewport at most once per frame. A tick flushes
fragments that arrived in between.

# Usage

	events, cancel := mgr.Subscribe()
	defer cancel()

	m := chat.New(chat.Options{
		Manager:  mgr,
		Uploader: uploader,
		Config:   cfg,
		Events:   events,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package chat
