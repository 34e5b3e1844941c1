// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports chats to JSON format. The output always carries the
// metadata fields; IncludeMetadata and IncludeTimestamps are ignored.
type JSONExporter struct {
	options *Options
}

// jsonChat is the exported document.
type jsonChat struct {
	ID        string          `json:"id"`
	Summary   string          `json:"summary"`
	Model     string          `json:"model,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Messages  []model.Message `json:"messages"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a chat to indented JSON.
func (e *JSONExporter) Export(chat session.Chat) ([]byte, error) {
	doc := jsonChat{
		ID:       chat.ID,
		Summary:  chat.Summary,
		Model:    e.options.Model,
		Messages: exportedMessages(chat, e.options),
	}
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}
	if created, ok := createdAt(chat); ok {
		doc.CreatedAt = &created
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
