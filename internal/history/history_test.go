// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

func msg(id string, role model.Role, content string) model.Message {
	return model.Message{ID: id, Role: role, Content: content}
}

func seeded(t *testing.T) *History {
	t.Helper()
	pre := model.NewPreamble("be brief")
	pre.ID = "pre"
	pre.Timestamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h, err := New(pre)
	require.NoError(t, err)
	return h
}

func TestHistory_AppendDuplicate(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(msg("a", model.RoleUser, "hi")))

	err := h.Append(msg("a", model.RoleUser, "again"))
	require.ErrorIs(t, err, model.ErrDuplicateID)
	assert.Equal(t, 2, h.Len())

	got, _ := h.Get("a")
	assert.Equal(t, "hi", got.Content)
}

func TestHistory_AppendAssignsID(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(model.Message{Role: model.RoleUser, Content: "x"}))

	last, ok := h.LastNonPreamble()
	require.True(t, ok)
	assert.NotEmpty(t, last.ID)
}

func TestHistory_AppendThenDeleteRestores(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(msg("u1", model.RoleUser, "hi")))
	require.NoError(t, h.Append(msg("a1", model.RoleAssistant, "hello")))
	before := h.Messages()

	require.NoError(t, h.Append(msg("u2", model.RoleUser, "more")))
	require.NoError(t, h.Delete("u2"))

	assert.Equal(t, before, h.Messages())

	// deleting from the middle keeps the rest in order
	require.NoError(t, h.Delete("u1"))
	ids := []string{}
	for _, m := range h.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"pre", "a1"}, ids)
}

func TestHistory_NotFound(t *testing.T) {
	h := seeded(t)

	tests := []struct {
		name string
		op   func() error
	}{
		{"delete", func() error { return h.Delete("missing") }},
		{"edit", func() error { return h.Edit("missing", "x") }},
		{"set important", func() error { return h.SetImportant("missing", true) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.op(), model.ErrNotFound)
		})
	}
}

func TestHistory_EditTwice(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(msg("u1", model.RoleUser, "first")))
	require.NoError(t, h.Append(msg("a1", model.RoleAssistant, "reply")))

	require.NoError(t, h.Edit("u1", "x"))
	require.NoError(t, h.Edit("u1", "y"))

	msgs := h.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "u1", msgs[1].ID)
	assert.Equal(t, "y", msgs[1].Content)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
}

func TestHistory_SetImportant(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(msg("u1", model.RoleUser, "hi")))

	require.NoError(t, h.SetImportant("u1", true))
	got, _ := h.Get("u1")
	assert.True(t, got.IsImportant)

	require.NoError(t, h.SetImportant("u1", false))
	got, _ = h.Get("u1")
	assert.False(t, got.IsImportant)
}

func TestHistory_LastNonPreambleAndEmpty(t *testing.T) {
	h := seeded(t)
	assert.True(t, h.IsEmpty())
	_, ok := h.LastNonPreamble()
	assert.False(t, ok)

	require.NoError(t, h.Append(msg("u1", model.RoleUser, "hi")))
	assert.False(t, h.IsEmpty())

	require.NoError(t, h.Append(msg("a1", model.RoleAssistant, "hello")))
	last, ok := h.LastNonPreamble()
	require.True(t, ok)
	assert.Equal(t, "a1", last.ID)
}

func TestHistory_SnapshotsAreCopies(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(msg("u1", model.RoleUser, "hi")))

	msgs := h.Messages()
	msgs[1].Content = "tampered"
	clone := h.Clone()
	require.NoError(t, clone.Edit("u1", "changed"))

	got, _ := h.Get("u1")
	assert.Equal(t, "hi", got.Content)
}

func TestHistory_JSONRoundTrip(t *testing.T) {
	h := seeded(t)
	require.NoError(t, h.Append(msg("z", model.RoleUser, "first")))
	require.NoError(t, h.Append(msg("b", model.RoleAssistant, "second")))
	require.NoError(t, h.SetImportant("b", true))

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded History
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h.Messages(), decoded.Messages())

	pre, _ := decoded.Get("pre")
	assert.True(t, pre.IsPreamble)
}

func TestHistory_UnmarshalRejectsDuplicates(t *testing.T) {
	var h History
	err := json.Unmarshal([]byte(`[{"id":"a","role":"user"},{"id":"a","role":"user"}]`), &h)
	assert.ErrorIs(t, err, model.ErrDuplicateID)
}
