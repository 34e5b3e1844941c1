// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// SidebarWidth is the width of the chat list column, borders included.
const SidebarWidth = 28

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	Sidebar       lipgloss.Style
	SidebarTitle  lipgloss.Style
	SidebarItem   lipgloss.Style
	SidebarActive lipgloss.Style
	SidebarTyping lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserMessage      lipgloss.Style
	AssistantMessage lipgloss.Style
	SystemMessage    lipgloss.Style
	RoleLabel        map[model.Role]lipgloss.Style
	ImportantMark    lipgloss.Style
	Cursor           lipgloss.Style
	EmptyHint        lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	Input       lipgloss.Style
	InputFocus  lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusValue lipgloss.Style
	StatusError lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderModel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Sidebar
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1).
		Width(SidebarWidth - 2)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		MarginBottom(1)

	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.SidebarActive = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.SidebarTyping = lipgloss.NewStyle().
		Foreground(Emerald)

	// Messages
	t.UserMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1)

	t.AssistantMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBorder).
		PaddingLeft(1)

	t.SystemMessage = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(SystemBorder).
		PaddingLeft(1).
		Foreground(TextSecondary)

	t.RoleLabel = map[model.Role]lipgloss.Style{
		model.RoleUser:      lipgloss.NewStyle().Bold(true).Foreground(Cyan),
		model.RoleAssistant: lipgloss.NewStyle().Bold(true).Foreground(Purple),
		model.RoleSystem:    lipgloss.NewStyle().Bold(true).Foreground(Amber),
	}

	t.ImportantMark = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.Cursor = lipgloss.NewStyle().
		Foreground(Purple).
		Blink(true)

	t.EmptyHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Padding(1, 2)

	// Input
	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.InputFocus = t.Input.
		BorderForeground(Purple)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.StatusValue = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// RoleStyle returns the label style for a role, falling back to the
// secondary text color.
func (t *Theme) RoleStyle(r model.Role) lipgloss.Style {
	if s, ok := t.RoleLabel[r]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(TextSecondary)
}

// MessageStyle returns the block style for a message role.
func (t *Theme) MessageStyle(r model.Role) lipgloss.Style {
	switch r {
	case model.RoleUser:
		return t.UserMessage
	case model.RoleAssistant:
		return t.AssistantMessage
	default:
		return t.SystemMessage
	}
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, sidebar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
