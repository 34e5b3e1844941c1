// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// This file defines keyboard bindings and shortcuts for the chat screen.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Send           key.Binding
	Newline        key.Binding
	Generate       key.Binding
	Stop           key.Binding
	NewChat        key.Binding
	DeleteChat     key.Binding
	NextChat       key.Binding
	PrevChat       key.Binding
	ToggleSidebar  key.Binding
	TogglePreamble key.Binding
	PageUp         key.Binding
	PageDown       key.Binding
	Help           key.Binding
	Quit           key.Binding
}

// DefaultKeyMap returns the default key bindings. With shiftSend set the
// roles of enter and alt+enter swap, so enter inserts a line break.
func DefaultKeyMap(shiftSend bool) KeyMap {
	send, newline := "enter", "alt+enter"
	if shiftSend {
		send, newline = newline, send
	}
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys(send),
			key.WithHelp(send, "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys(newline),
			key.WithHelp(newline, "new line"),
		),
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "generate"),
		),
		Stop: key.NewBinding(
			key.WithKeys("ctrl+s", "esc"),
			key.WithHelp("C-s/Esc", "stop"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		DeleteChat: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete chat"),
		),
		NextChat: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next chat"),
		),
		PrevChat: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "previous chat"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "toggle sidebar"),
		),
		TogglePreamble: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "toggle preamble"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the one-line help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Generate, k.Stop, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Input
		{k.Send, k.Newline, k.Generate, k.Stop},
		// Chats
		{k.NewChat, k.DeleteChat, k.NextChat, k.PrevChat},
		// View
		{k.ToggleSidebar, k.TogglePreamble, k.PageUp, k.PageDown},
		{k.Help, k.Quit},
	}
}
