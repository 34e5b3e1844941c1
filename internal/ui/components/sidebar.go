// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the chat TUI.
package components

import (
	"strings"

	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/ui/styles"
	"github.com/kosiew/my-chat-gpt/internal/util"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar renders the chat list, newest first, with the active chat
// highlighted and a marker on chats that are streaming.
type Sidebar struct {
	Entries []session.ListEntry
	Height  int
	theme   *styles.Theme
}

// NewSidebar creates an empty sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{theme: theme}
}

// SetEntries replaces the listed chats.
func (s *Sidebar) SetEntries(entries []session.ListEntry) {
	s.Entries = entries
}

// ActiveIndex returns the position of the active chat, or -1.
func (s *Sidebar) ActiveIndex() int {
	for i, e := range s.Entries {
		if e.Active {
			return i
		}
	}
	return -1
}

// Next returns the id of the chat delta positions away from the active one,
// wrapping around. It returns "" when the list is empty.
func (s *Sidebar) Next(delta int) string {
	n := len(s.Entries)
	if n == 0 {
		return ""
	}
	i := s.ActiveIndex()
	if i < 0 {
		if delta < 0 {
			return s.Entries[n-1].ID
		}
		return s.Entries[0].ID
	}
	i = ((i+delta)%n + n) % n
	return s.Entries[i].ID
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	inner := styles.SidebarWidth - 4
	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	if len(s.Entries) == 0 {
		b.WriteString(s.theme.Help.Render("no chats yet"))
	}

	rows := s.Height - 4
	start := 0
	if active := s.ActiveIndex(); rows > 0 && active >= rows {
		start = active - rows + 1
	}
	for i := start; i < len(s.Entries); i++ {
		if rows > 0 && i-start >= rows {
			break
		}
		e := s.Entries[i]
		marker := "  "
		if e.BotTyping {
			marker = s.theme.SidebarTyping.Render("~ ")
		}
		label := util.PadWidth(util.TruncateWidth(util.SingleLine(e.Summary), inner-2), inner-2)
		style := s.theme.SidebarItem
		if e.Active {
			style = s.theme.SidebarActive
		}
		b.WriteString(marker + style.Render(label))
		if i < len(s.Entries)-1 {
			b.WriteString("\n")
		}
	}

	style := s.theme.Sidebar
	if s.Height > 2 {
		style = style.Height(s.Height - 2)
	}
	return style.Render(b.String())
}
