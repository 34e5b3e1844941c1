// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides chat export functionality for mychat.
// Supports exporting chats to Markdown and JSON with optional metadata.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/util"
	"github.com/kosiew/my-chat-gpt/internal/view"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for chat exporters.
type Exporter interface {
	// Export converts a chat snapshot to the target format.
	Export(chat session.Chat) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name or its usual file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (want markdown or json)", s)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata includes a metadata header (id, model, dates).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// IncludePreamble exports the preamble message too.
	IncludePreamble bool

	// Model is recorded in the metadata header.
	Model string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a chat using exporter and returns the output path.
// The file name is built from the chat id and its summary.
func ExportToFile(chat session.Chat, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(chat)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(chat.ID),
		sanitizeFilename(chat.Summary),
		exporter.FileExtension(),
	)

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// exportedMessages returns the messages an export includes.
func exportedMessages(chat session.Chat, opts *Options) []model.Message {
	return view.VisibleMessages(chat, opts.IncludePreamble)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename maps s to a file name component of at most 50 runes that
// is valid on Windows and Unix.
func sanitizeFilename(s string) string {
	if runes := []rune(s); len(runes) > 50 {
		s = string(runes[:50])
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '-'
		case r == ' ', r == '\t', r == '\n', r == '\r':
			return '_'
		case r < 32, r == 127:
			return '-'
		}
		return r
	}, s)
	if s == "" {
		return "chat"
	}
	return s
}

// createdAt recovers the creation time from the chat id.
func createdAt(chat session.Chat) (time.Time, bool) {
	t, err := model.ParseChatID(chat.ID)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
