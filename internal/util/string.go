// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storage and config layers.
package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateWidth shortens s to at most maxWidth terminal cells, ending with
// "..." when something was cut. Wide characters count as two cells.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadWidth truncates or right-pads s to exactly width cells.
func PadWidth(s string, width int) string {
	return runewidth.FillRight(TruncateWidth(s, width), width)
}

// SingleLine collapses line breaks so s fits in a list row.
func SingleLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
