// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown format. A reply that is still being
// typed is not part of the history and is not exported.
func (e *MarkdownExporter) Export(chat session.Chat) ([]byte, error) {
	msgs := exportedMessages(chat, e.options)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("chat %s has no messages", chat.ID)
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(chat.Summary)))
		sb.WriteString(fmt.Sprintf("id: %s\n", escapeYAML(chat.ID)))
		if e.options.Model != "" {
			sb.WriteString(fmt.Sprintf("model: %s\n", escapeYAML(e.options.Model)))
		}
		if created, ok := createdAt(chat); ok {
			sb.WriteString(fmt.Sprintf("date: %s\n", created.Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(msgs)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: mychat\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(chat.Summary)))

	for i, msg := range msgs {
		label := formatRoleLabel(msg)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if e.options.IncludeMetadata {
		sb.WriteString("\n---\n\n")
		sb.WriteString(fmt.Sprintf("*Exported from mychat on %s*\n", formatTimestamp(time.Now())))
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns the heading label for a message.
func formatRoleLabel(msg model.Message) string {
	label := "[" + msg.Role.DisplayName() + "]"
	if msg.IsPreamble {
		label += " (preamble)"
	}
	if msg.IsImportant {
		label += " (important)"
	}
	return label
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// escapeYAML quotes values that YAML would otherwise misread.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
