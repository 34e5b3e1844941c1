// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses the newline-delimited JSON of a streaming response.
type StreamReader struct {
	reader *bufio.Reader
	model  string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Process reads the stream and calls the callback for each chunk, in order.
// It returns nil after the done chunk, io.ErrUnexpectedEOF if the body ends
// first, and ctx.Err() once the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := s.readChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if chunk == nil {
			continue
		}
		callback(*chunk)
		if chunk.Done {
			return nil
		}
	}
}

// readChunk reads and parses a single line. It returns a nil chunk for
// blank or malformed lines.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return nil, err
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var resp chatLine
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, nil
	}
	if resp.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: resp.Error}
	}
	if resp.Model != "" {
		s.model = resp.Model
	}

	chunk := &StreamChunk{
		Content: resp.Message.Content,
		Model:   s.model,
		Done:    resp.Done,
	}
	if resp.Done {
		chunk.DoneReason = resp.DoneReason
		chunk.TotalDuration = time.Duration(resp.TotalDuration)
		chunk.EvalDuration = time.Duration(resp.EvalDuration)
		chunk.PromptTokens = resp.PromptEvalCount
		chunk.CompletionTokens = resp.EvalCount
	}
	return chunk, nil
}
