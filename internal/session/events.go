// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection and orchestrates streaming.
package session

import "github.com/kosiew/my-chat-gpt/internal/model"

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what happened.
type EventKind int

const (
	// EventUpdated reports a committed change to a chat or to the chat list.
	EventUpdated EventKind = iota
	EventStarted
	EventFragment
	EventCompleted
	EventAborted
	EventErrored
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventUpdated:
		return "updated"
	case EventStarted:
		return "started"
	case EventFragment:
		return "fragment"
	case EventCompleted:
		return "completed"
	case EventAborted:
		return "aborted"
	case EventErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event ends a streaming session.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventAborted || k == EventErrored
}

// Event is delivered to subscribers after the change it describes has been
// applied. ChatID is empty for changes that affect every chat.
type Event struct {
	Kind      EventKind
	ChatID    string
	SessionID string

	// Fragment is the text appended by an EventFragment.
	Fragment string

	// Message is the committed assistant reply of an EventCompleted, or the
	// submitted message of an EventUpdated raised by Submit.
	Message model.Message

	// Err matches model.ErrUpstream on EventErrored. Aborts carry no error.
	Err error
}

// Subscribe returns a channel of events and a function that cancels the
// subscription. Events are dropped, with a warning, when a subscriber falls
// behind by more than the configured buffer. The channel is closed by the
// cancel function or by Close.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Event, m.cfg.EventBuffer)
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextID
	m.nextID++
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			close(sub)
			delete(m.subs, id)
		}
	}
}

func (m *Manager) publishLocked(ev Event) {
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.logger.Warn("event subscriber full, dropping event",
				"kind", ev.Kind.String(), "chat_id", ev.ChatID)
		}
	}
}
