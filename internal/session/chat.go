// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection and orchestrates streaming.
package session

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/kosiew/my-chat-gpt/internal/history"
	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Chat is a read-only snapshot of one chat. Mutating it has no effect on
// the manager.
type Chat struct {
	ID      string
	Summary string
	Draft   string
	History *history.History

	// BotTyping is true while a session is streaming for the chat.
	BotTyping bool

	// BotTypingMessage is the provisional reply, set only while BotTyping.
	BotTypingMessage *model.Message

	// SessionID identifies the streaming session, if any.
	SessionID string
}

// ListEntry describes one chat in the chat list.
type ListEntry struct {
	ID        string
	Summary   string
	Messages  int
	BotTyping bool
	Active    bool
}

// Chat returns a snapshot of a chat.
func (m *Manager) Chat(id string) (Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return Chat{}, model.NotFound("session.chat", id)
	}
	return c.snapshot(), nil
}

// ActiveChat returns a snapshot of the active chat.
func (m *Manager) ActiveChat() (Chat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[m.active]
	if !ok {
		return Chat{}, false
	}
	return c.snapshot(), true
}

func (c *chatState) snapshot() Chat {
	out := Chat{
		ID:      c.id,
		Summary: c.summary,
		Draft:   c.draft,
		History: c.hist.Clone(),
	}
	if c.session != nil && c.session.Streaming() {
		msg := c.session.Provisional()
		out.BotTyping = true
		out.BotTypingMessage = &msg
		out.SessionID = c.session.ID()
	}
	return out
}

// =============================================================================
// CHAT LIST
// =============================================================================

// List returns every chat, newest first.
func (m *Manager) List() []ListEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.chats))
	for id := range m.chats {
		ids = append(ids, id)
	}
	return m.entriesLocked(ids)
}

// StaleChats returns the ids of chats created more than days whole days
// before now, newest first. Chats whose id is not a timestamp are skipped.
func (m *Manager) StaleChats(now time.Time, days int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id := range m.chats {
		if model.IsStale(id, now, days) {
			ids = append(ids, id)
		}
	}
	model.SortChatIDs(ids)
	return ids
}

// Search returns chats whose summary or any message contains query,
// ignoring case, newest first. An empty query matches every chat.
func (m *Manager) Search(query string) []ListEntry {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, c := range m.chats {
		if needle == "" || strings.Contains(fold.String(c.summary), needle) {
			ids = append(ids, id)
			continue
		}
		for _, msg := range c.hist.Messages() {
			if strings.Contains(fold.String(msg.Content), needle) {
				ids = append(ids, id)
				break
			}
		}
	}
	return m.entriesLocked(ids)
}

func (m *Manager) entriesLocked(ids []string) []ListEntry {
	model.SortChatIDs(ids)
	out := make([]ListEntry, 0, len(ids))
	for _, id := range ids {
		c := m.chats[id]
		out = append(out, ListEntry{
			ID:        id,
			Summary:   c.summary,
			Messages:  c.hist.Len(),
			BotTyping: c.session != nil,
			Active:    id == m.active,
		})
	}
	return out
}
