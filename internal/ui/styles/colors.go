// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chat TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Purple - Primary accent, assistant messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Cyan - Brand color, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Success states
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, important messages, the preamble
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// SurfaceDim - Headers, footers and the sidebar
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// SelectionBg highlights the active chat.
var SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Hints and timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// MESSAGE COLORS
// =============================================================================

var UserBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}
var AssistantBorder = lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"}
var SystemBorder = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators for status states, so state is
// readable without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Pending string
	Active  string
}

// StatusIndicators are ASCII-only for maximum compatibility.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Pending: "[ ]",
	Active:  "[*]",
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true).
		Render(StatusIndicators.Success + " " + message)
}
