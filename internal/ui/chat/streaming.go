// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// This file caps how often streaming fragments re-render the viewport.
// Fragments can arrive far faster than a terminal can redraw, so at most one
// render happens per frame and a tick flushes whatever arrived in between.
package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// FRAME LIMITER
// =============================================================================

const defaultMaxFPS = 30

// frameLimiter decides when a streaming fragment may trigger a render.
// It is only touched from the Bubble Tea update loop.
type frameLimiter struct {
	minInterval time.Duration
	lastRender  time.Time
	pending     bool // a fragment arrived since the last render
	ticking     bool // a StreamTickMsg is scheduled
}

func newFrameLimiter(maxFPS int) *frameLimiter {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &frameLimiter{minInterval: time.Second / time.Duration(maxFPS)}
}

// allow reports whether a render may happen now. When it may not, the
// fragment is remembered and the caller should schedule a tick.
func (f *frameLimiter) allow(now time.Time) bool {
	if now.Sub(f.lastRender) >= f.minInterval {
		f.rendered(now)
		return true
	}
	f.pending = true
	return false
}

// rendered records a render at now.
func (f *frameLimiter) rendered(now time.Time) {
	f.lastRender = now
	f.pending = false
}

// schedule returns a tick command unless one is already in flight.
func (f *frameLimiter) schedule() tea.Cmd {
	if f.ticking {
		return nil
	}
	f.ticking = true
	return tea.Tick(f.minInterval, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// tick consumes a StreamTickMsg and reports whether a render is owed.
func (f *frameLimiter) tick(now time.Time) bool {
	f.ticking = false
	if !f.pending {
		return false
	}
	f.rendered(now)
	return true
}
