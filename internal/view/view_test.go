// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosiew/my-chat-gpt/internal/history"
	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
)

func chatWith(t *testing.T, msgs ...model.Message) session.Chat {
	t.Helper()
	h, err := history.New(append([]model.Message{model.NewPreamble("pre")}, msgs...)...)
	require.NoError(t, err)
	return session.Chat{ID: "20240301120000", History: h}
}

func typing(c session.Chat, content string) session.Chat {
	c.BotTyping = true
	c.BotTypingMessage = &model.Message{Role: model.RoleAssistant, Content: content}
	return c
}

func TestDerivedState(t *testing.T) {
	user := model.NewUserMessage("hi")
	reply := model.NewMessage(model.RoleAssistant, "hello")

	tests := []struct {
		name       string
		chat       session.Chat
		empty      bool
		lastBot    bool
		generate   bool
		regenerate bool
		stop       bool
	}{
		{
			name:  "fresh chat",
			chat:  chatWith(t),
			empty: true,
		},
		{
			name:     "user message",
			chat:     chatWith(t, user),
			generate: true,
		},
		{
			name:       "assistant last",
			chat:       chatWith(t, user, reply),
			lastBot:    true,
			generate:   true,
			regenerate: true,
		},
		{
			name: "typing without content",
			chat: typing(chatWith(t, user), ""),
		},
		{
			name: "typing with content",
			chat: typing(chatWith(t, user), "Hel"),
			stop: true,
		},
		{
			name:    "typing after a reply",
			chat:    typing(chatWith(t, user, reply), "x"),
			lastBot: true,
			stop:    true,
		},
		{
			name:  "zero chat",
			chat:  session.Chat{},
			empty: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.empty, IsHistoryEmpty(tc.chat), "IsHistoryEmpty")
			assert.Equal(t, tc.lastBot, IsLastMessageAssistant(tc.chat), "IsLastMessageAssistant")
			assert.Equal(t, tc.generate, ShouldShowGenerateButton(tc.chat), "ShouldShowGenerateButton")
			assert.Equal(t, tc.regenerate, ShouldShowRegenerateLabel(tc.chat), "ShouldShowRegenerateLabel")
			assert.Equal(t, tc.stop, ShouldShowStopButton(tc.chat), "ShouldShowStopButton")
		})
	}
}

func TestStopButtonNeedsRole(t *testing.T) {
	c := chatWith(t)
	c.BotTyping = true
	c.BotTypingMessage = &model.Message{Content: "x"}
	assert.False(t, ShouldShowStopButton(c))
}

func TestGenerateLabel(t *testing.T) {
	user := model.NewUserMessage("hi")
	assert.Equal(t, "Generate", GenerateLabel(chatWith(t, user)))
	assert.Equal(t, "Regenerate", GenerateLabel(chatWith(t, user, model.NewMessage(model.RoleAssistant, "a"))))
}

func TestShouldAutoscroll(t *testing.T) {
	tests := []struct {
		name                   string
		offset, visible, total int
		want                   bool
	}{
		{"at bottom", 80, 20, 100, true},
		{"within threshold", 70, 20, 100, true},
		{"just outside", 69, 20, 100, false},
		{"content shorter than viewport", 0, 20, 5, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldAutoscroll(tc.offset, tc.visible, tc.total))
		})
	}
}

func TestIsCompletedResponse(t *testing.T) {
	user := model.NewUserMessage("hi")
	done := chatWith(t, user, model.NewMessage(model.RoleAssistant, "a"))

	assert.True(t, IsCompletedResponse(done, true))
	assert.False(t, IsCompletedResponse(done, false))
	assert.False(t, IsCompletedResponse(chatWith(t, user), true))
	assert.False(t, IsCompletedResponse(typing(done, "more"), true))
}

func TestVisibleMessages(t *testing.T) {
	c := chatWith(t, model.NewUserMessage("hi"))

	assert.Len(t, VisibleMessages(c, false), 1)
	all := VisibleMessages(c, true)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsPreamble)
	assert.Nil(t, VisibleMessages(session.Chat{}, true))
}
