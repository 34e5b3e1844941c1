// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides the ordered per-chat message store.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// HISTORY
// =============================================================================

// History is the ordered message collection of one chat.
//
// Insertion order is conversation order and ids are unique within a
// History. It is not safe for concurrent use; the session manager serializes
// access to every chat's history under its own lock.
type History struct {
	order []string
	byID  map[string]model.Message
}

// New creates an empty history seeded with msgs in order.
// It fails if two messages share an id.
func New(msgs ...model.Message) (*History, error) {
	h := &History{byID: make(map[string]model.Message, len(msgs))}
	for _, m := range msgs {
		if err := h.Append(m); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Append inserts msg at the end of the conversation.
func (h *History) Append(msg model.Message) error {
	if h.byID == nil {
		h.byID = make(map[string]model.Message)
	}
	if msg.ID == "" {
		msg.ID = model.NewMessageID()
	}
	if _, exists := h.byID[msg.ID]; exists {
		return model.DuplicateID("history.append", msg.ID)
	}
	h.order = append(h.order, msg.ID)
	h.byID[msg.ID] = msg
	return nil
}

// Delete removes the message with the given id.
func (h *History) Delete(id string) error {
	if _, ok := h.byID[id]; !ok {
		return model.NotFound("history.delete", id)
	}
	delete(h.byID, id)
	for i, oid := range h.order {
		if oid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}

// Edit replaces the content of a message, keeping its id, role and position.
func (h *History) Edit(id, content string) error {
	msg, ok := h.byID[id]
	if !ok {
		return model.NotFound("history.edit", id)
	}
	msg.Content = content
	h.byID[id] = msg
	return nil
}

// SetImportant sets the importance flag of a message.
func (h *History) SetImportant(id string, important bool) error {
	msg, ok := h.byID[id]
	if !ok {
		return model.NotFound("history.set_important", id)
	}
	msg.IsImportant = important
	h.byID[id] = msg
	return nil
}

// Get returns a copy of the message with the given id.
func (h *History) Get(id string) (model.Message, bool) {
	msg, ok := h.byID[id]
	return msg, ok
}

// Len returns the number of messages, preamble included.
func (h *History) Len() int {
	return len(h.order)
}

// Messages returns a copy of the messages in conversation order.
func (h *History) Messages() []model.Message {
	out := make([]model.Message, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.byID[id])
	}
	return out
}

// LastNonPreamble returns the most recent message that is not the preamble.
func (h *History) LastNonPreamble() (model.Message, bool) {
	for i := len(h.order) - 1; i >= 0; i-- {
		msg := h.byID[h.order[i]]
		if !msg.IsPreamble {
			return msg, true
		}
	}
	return model.Message{}, false
}

// IsEmpty reports whether the history holds no messages besides the preamble.
func (h *History) IsEmpty() bool {
	_, ok := h.LastNonPreamble()
	return !ok
}

// Clone returns an independent copy of the history.
func (h *History) Clone() *History {
	c := &History{
		order: make([]string, len(h.order)),
		byID:  make(map[string]model.Message, len(h.byID)),
	}
	copy(c.order, h.order)
	for id, msg := range h.byID {
		c.byID[id] = msg
	}
	return c
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// MarshalJSON encodes the history as an array in conversation order.
func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Messages())
}

// UnmarshalJSON decodes an array written by MarshalJSON.
func (h *History) UnmarshalJSON(data []byte) error {
	var msgs []model.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	fresh, err := New(msgs...)
	if err != nil {
		return err
	}
	*h = *fresh
	return nil
}
