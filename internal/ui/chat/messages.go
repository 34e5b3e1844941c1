// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// This file defines the Bubble Tea message types used by the chat screen.
package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/session"
)

// =============================================================================
// MANAGER EVENTS
// =============================================================================

// EventMsg wraps a chat manager event.
type EventMsg struct {
	Event session.Event
}

// eventsClosedMsg reports that the manager closed the subscription.
type eventsClosedMsg struct{}

// waitForEvent returns a command that delivers the next manager event.
func waitForEvent(events <-chan session.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// StatusErrorMsg shows an error in the status bar.
type StatusErrorMsg struct {
	Err error
}

// SettingsMsg delivers a reloaded configuration.
type SettingsMsg struct {
	Config *config.Config
}

// =============================================================================
// UPLOAD
// =============================================================================

// uploadProgressMsg reports how many parts of an upload have been sent.
type uploadProgressMsg struct {
	Sent  int
	Total int
}

// uploadDoneMsg ends an upload.
type uploadDoneMsg struct {
	Filename string
	Parts    int
	Err      error
}

// waitForUpload returns a command that delivers the next upload message.
func waitForUpload(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// StreamTickMsg flushes throttled streaming output.
type StreamTickMsg struct {
	Time time.Time
}

// bellMsg is returned after the completion bell has rung.
type bellMsg struct{}
