// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the chat TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kosiew/my-chat-gpt/internal/ui/styles"
	"github.com/kosiew/my-chat-gpt/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// Status represents the current application status
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusUploading
	StatusError
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming..."
	case StatusUploading:
		return "Uploading..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a text indicator for the status, readable without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusStreaming:
		return "~"
	case StatusUploading:
		return styles.StatusIndicators.Pending
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is one key hint shown on the right of the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line of the chat screen.
type StatusBar struct {
	ModelName string
	Backend   string
	Status    Status
	Message   string // error or notice text, shown instead of the status name
	Width     int
	Shortcuts []Shortcut
	theme     *styles.Theme
}

// NewStatusBar creates a new StatusBar component
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Width:  80,
		theme:  theme,
	}
}

// SetWidth updates the status bar width
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetStatus updates the current status and clears any message.
func (s *StatusBar) SetStatus(status Status) {
	s.Status = status
	s.Message = ""
}

// SetError switches to the error status with a message.
func (s *StatusBar) SetError(err error) {
	s.Status = StatusError
	s.Message = util.SingleLine(err.Error())
}

// SetNotice shows a message without changing the status.
func (s *StatusBar) SetNotice(msg string) {
	s.Message = util.SingleLine(msg)
}

// View renders the status bar
func (s *StatusBar) View() string {
	left := s.renderStatus()
	if s.ModelName != "" {
		model := s.ModelName
		if s.Backend != "" {
			model = s.Backend + ":" + model
		}
		left += "  " + s.theme.StatusValue.Render(model)
	}

	right := ""
	if s.Width >= 60 {
		right = s.renderShortcuts()
	}

	inner := s.Width - 2
	if inner < 1 {
		inner = 1
	}
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = inner - lipgloss.Width(left)
	}
	if gap < 0 {
		left = util.TruncateWidth(left, inner)
		gap = 0
	}
	return s.theme.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderStatus() string {
	text := s.Status.String()
	if s.Message != "" {
		text = s.Message
	}
	label := fmt.Sprintf("%s %s", s.Status.Icon(), text)
	if s.Status == StatusError {
		return s.theme.StatusError.Render(label)
	}
	return s.theme.StatusValue.Render(label)
}

func (s *StatusBar) renderShortcuts() string {
	parts := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		parts = append(parts, s.theme.StatusKey.Render(sc.Key)+" "+s.theme.Help.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}
