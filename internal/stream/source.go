// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream drives one in-flight assistant completion.
package stream

import (
	"context"
	"errors"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// COMPLETION SOURCE
// =============================================================================

// Request is what a Source needs to produce one completion.
type Request struct {
	ChatID    string
	Messages  []model.Message
	Model     string
	MaxTokens int
}

// Chunk is one event of a completion stream. Exactly one of the fields is
// meaningful: a text fragment, the completion signal, or an error.
type Chunk struct {
	Content string
	Done    bool
	Err     error
}

// Source produces a completion as a stream of chunks.
//
// The channel carries fragments followed by a single Done chunk, or a single
// Err chunk, and is then closed. Once ctx is cancelled the source must not
// send any further chunks and must close the channel.
type Source interface {
	Stream(ctx context.Context, req Request) <-chan Chunk
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, req Request) <-chan Chunk

// Stream calls f.
func (f SourceFunc) Stream(ctx context.Context, req Request) <-chan Chunk {
	return f(ctx, req)
}

// ErrUnexpectedEOF is delivered when a source closes its channel without a
// Done or Err chunk.
var ErrUnexpectedEOF = errors.New("completion stream ended without a done signal")

// Pump reads src and hands every chunk to deliver in arrival order. It returns
// after delivering a Done or Err chunk, or when ctx is cancelled, in which
// case nothing more is delivered.
func Pump(ctx context.Context, src Source, req Request, deliver func(Chunk)) {
	ch := src.Stream(ctx, req)
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				if ctx.Err() == nil {
					deliver(Chunk{Err: ErrUnexpectedEOF})
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			deliver(c)
			if c.Done || c.Err != nil {
				return
			}
		}
	}
}
