// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package view computes presentation state from chat snapshots.
package view

import (
	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
)

// AutoscrollThreshold is how close to the bottom, in rows, the viewport must
// be for new content to keep it pinned there.
const AutoscrollThreshold = 10

// IsHistoryEmpty reports whether the chat has no messages besides the preamble.
func IsHistoryEmpty(c session.Chat) bool {
	return c.History == nil || c.History.IsEmpty()
}

// IsLastMessageAssistant reports whether the latest non-preamble message is
// an assistant reply.
func IsLastMessageAssistant(c session.Chat) bool {
	if c.History == nil {
		return false
	}
	last, ok := c.History.LastNonPreamble()
	return ok && last.Role == model.RoleAssistant
}

// ShouldShowGenerateButton reports whether a completion can be requested.
func ShouldShowGenerateButton(c session.Chat) bool {
	return !c.BotTyping && !IsHistoryEmpty(c)
}

// ShouldShowRegenerateLabel reports whether the generate action would
// replace the last reply.
func ShouldShowRegenerateLabel(c session.Chat) bool {
	return ShouldShowGenerateButton(c) && IsLastMessageAssistant(c)
}

// ShouldShowStopButton reports whether a reply is visibly being typed.
func ShouldShowStopButton(c session.Chat) bool {
	return c.BotTyping &&
		c.BotTypingMessage != nil &&
		c.BotTypingMessage.Role != "" &&
		c.BotTypingMessage.Content != ""
}

// GenerateLabel is the caption of the generate action.
func GenerateLabel(c session.Chat) string {
	if ShouldShowRegenerateLabel(c) {
		return "Regenerate"
	}
	return "Generate"
}

// ShouldAutoscroll reports whether a viewport scrolled to offset, showing
// visible of total rows, is close enough to the bottom to follow new output.
func ShouldAutoscroll(offset, visible, total int) bool {
	return total-offset-visible <= AutoscrollThreshold
}

// IsCompletedResponse reports whether a reply the user was waiting for has
// just arrived. It drives the completion sound.
func IsCompletedResponse(c session.Chat, waiting bool) bool {
	return waiting && !c.BotTyping && !IsHistoryEmpty(c) && IsLastMessageAssistant(c)
}

// VisibleMessages returns the messages to render, hiding the preamble
// unless showPreamble is set.
func VisibleMessages(c session.Chat, showPreamble bool) []model.Message {
	if c.History == nil {
		return nil
	}
	all := c.History.Messages()
	if showPreamble {
		return all
	}
	out := make([]model.Message, 0, len(all))
	for _, m := range all {
		if !m.IsPreamble {
			out = append(out, m)
		}
	}
	return out
}
