// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// This file renders assistant replies as Markdown.
package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// StyleAuto picks a dark or light Markdown style from the terminal background.
const StyleAuto = "auto"

// markdownRenderer wraps a glamour renderer built for one wrap width.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(style string) *markdownRenderer {
	if style == "" {
		style = StyleAuto
	}
	return &markdownRenderer{style: style}
}

// Render renders content wrapped to width. Content that fails to render is
// returned unchanged.
func (r *markdownRenderer) Render(content string, width int) string {
	if width < 20 {
		width = 20
	}
	if r.renderer == nil || r.width != width {
		opt := glamour.WithStandardStyle(r.style)
		if r.style == StyleAuto {
			opt = glamour.WithAutoStyle()
		}
		tr, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
		if err != nil {
			return content
		}
		r.renderer = tr
		r.width = width
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
