// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload submits large text files to a chat in parts.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// Messages framing an upload.
const (
	IntroMessage = "I will submit the contents of a file in chunks. Please ask for further instructions after I submit all the chunks"
	OutroMessage = "I have uploaded all chunks of the file. First question is how many chunks have you received?"
)

// DefaultChunkSize is the maximum part size in characters.
const DefaultChunkSize = 15000

// ErrEmptyFile is returned for content with nothing to upload.
var ErrEmptyFile = errors.New("upload: file is empty")

// Submitter appends a message to a chat. *session.Manager satisfies it.
type Submitter interface {
	Submit(chatID, text string, role model.Role) (model.Message, error)
}

// Progress is called after each part with the number of parts sent so far.
type Progress func(sent, total int)

// Config controls part size and pacing.
type Config struct {
	// ChunkSize is the maximum number of characters per part.
	ChunkSize int

	// Interval is the minimum delay between consecutive messages.
	// Zero sends them back to back.
	Interval time.Duration
}

// DefaultConfig returns the default upload configuration.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize}
}

// Uploader sends file content to a chat as a sequence of user messages.
type Uploader struct {
	sub     Submitter
	size    int
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates an Uploader. A nil logger uses slog.Default.
func New(sub Submitter, cfg Config, logger *slog.Logger) *Uploader {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.Interval > 0 {
		limit = rate.Every(cfg.Interval)
	}
	return &Uploader{
		sub:     sub,
		size:    cfg.ChunkSize,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Upload submits content to chatID: an intro message, one message per part,
// then an outro message. It returns the number of parts sent. Cancelling ctx
// stops the upload between messages.
func (u *Uploader) Upload(ctx context.Context, chatID, filename, content string, progress Progress) (int, error) {
	parts := Split(content, u.size)
	if len(parts) == 0 {
		return 0, ErrEmptyFile
	}
	total := len(parts)
	u.logger.Info("upload started", "chat_id", chatID, "file", filename, "parts", total)

	if err := u.send(ctx, chatID, IntroMessage); err != nil {
		return 0, err
	}
	for i, part := range parts {
		if err := u.send(ctx, chatID, FormatPart(i+1, filename, part)); err != nil {
			return i, err
		}
		if progress != nil {
			progress(i+1, total)
		}
	}
	if err := u.send(ctx, chatID, OutroMessage); err != nil {
		return total, err
	}

	u.logger.Info("upload finished", "chat_id", chatID, "file", filename, "parts", total)
	return total, nil
}

func (u *Uploader) send(ctx context.Context, chatID, text string) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if _, err := u.sub.Submit(chatID, text, model.RoleUser); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

// FormatPart renders the message carrying part i (1-based) of a file.
func FormatPart(i int, filename, part string) string {
	return fmt.Sprintf("Part %d of %s: \n\n %s", i, filename, part)
}

// Split cuts content into parts of at most size characters. Multi-byte
// characters are never split.
func Split(content string, size int) []string {
	if content == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(content)
	parts := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// Percent converts progress to a percentage.
func Percent(sent, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(sent) / float64(total) * 100
}
