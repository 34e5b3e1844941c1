// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the chat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Key Types

  - Theme: Every Lip Gloss style used by the chat screen
  - LayoutMode: Responsive breakpoint derived from the terminal width
  - StatusIndicatorSet: ASCII markers that carry state without color

# Usage

	theme := styles.NewTheme()
	theme.SetSize(msg.Width, msg.Height)
	if theme.GetLayoutMode() == styles.LayoutNarrow {
		// hide the sidebar
	}
	label := theme.RoleStyle(model.RoleUser).Render("You")
*/
package styles
