// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(outputProfile())
}

// =============================================================================
// OUTPUT STYLES
// =============================================================================

var (
	// TitleStyle renders chat summaries.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	// SectionStyle renders headings in /help.
	SectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))

	SuccessStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	ErrorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	WarningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	HighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	ruleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	columnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// rule renders a horizontal line of width cells.
func rule(width int) string {
	return ruleStyle.Render(strings.Repeat("=", width))
}

// column left-aligns s in a dim column of the given width.
func column(s string, width int) string {
	return columnStyle.Width(width).Render(s)
}
