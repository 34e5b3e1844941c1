// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the chat TUI.
package components

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/ui/styles"
)

// =============================================================================
// STATUS BAR TESTS
// =============================================================================

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusReady, "Ready"},
		{StatusStreaming, "Streaming..."},
		{StatusUploading, "Uploading..."},
		{StatusError, "Error"},
		{Status(99), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestStatusBar_View(t *testing.T) {
	bar := NewStatusBar(styles.NewTheme())
	bar.SetWidth(120)
	bar.ModelName = "gpt-3.5-turbo"
	bar.Backend = "openai"
	bar.Shortcuts = []Shortcut{{Key: "ctrl+g", Desc: "generate"}}

	out := bar.View()
	assert.Contains(t, out, "Ready")
	assert.Contains(t, out, "openai:gpt-3.5-turbo")
	assert.Contains(t, out, "generate")
}

func TestStatusBar_ErrorAndReset(t *testing.T) {
	bar := NewStatusBar(styles.NewTheme())
	bar.SetWidth(120)

	bar.SetError(errors.New("upstream\nfailed"))
	assert.Equal(t, StatusError, bar.Status)
	assert.Contains(t, bar.View(), "upstream failed")

	bar.SetStatus(StatusReady)
	assert.Empty(t, bar.Message)
	assert.NotContains(t, bar.View(), "upstream")
}

func TestStatusBar_NarrowHidesShortcuts(t *testing.T) {
	bar := NewStatusBar(styles.NewTheme())
	bar.SetWidth(40)
	bar.Shortcuts = []Shortcut{{Key: "ctrl+g", Desc: "generate"}}
	assert.NotContains(t, bar.View(), "generate")
}

// =============================================================================
// SIDEBAR TESTS
// =============================================================================

func testEntries() []session.ListEntry {
	return []session.ListEntry{
		{ID: "3", Summary: "third"},
		{ID: "2", Summary: "second", Active: true, BotTyping: true},
		{ID: "1", Summary: "first"},
	}
}

func TestSidebar_Next(t *testing.T) {
	s := NewSidebar(styles.NewTheme())
	assert.Equal(t, "", s.Next(1))

	s.SetEntries(testEntries())
	assert.Equal(t, 1, s.ActiveIndex())
	assert.Equal(t, "1", s.Next(1))
	assert.Equal(t, "3", s.Next(-1))
	assert.Equal(t, "3", s.Next(2))

	s.SetEntries([]session.ListEntry{{ID: "a"}, {ID: "b"}})
	assert.Equal(t, -1, s.ActiveIndex())
	assert.Equal(t, "a", s.Next(1))
	assert.Equal(t, "b", s.Next(-1))
}

func TestSidebar_View(t *testing.T) {
	s := NewSidebar(styles.NewTheme())
	s.Height = 20
	assert.Contains(t, s.View(), "no chats yet")

	s.SetEntries(testEntries())
	out := s.View()
	for _, want := range []string{"Chats", "first", "second", "third", "~"} {
		assert.True(t, strings.Contains(out, want), "missing %q in %q", want, out)
	}
}
