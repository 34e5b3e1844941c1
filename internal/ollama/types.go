// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"time"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatRequest is the request body for /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Options contains model parameters.
type Options struct {
	// NumPredict caps the number of generated tokens
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// chatLine is one NDJSON line of a streaming /api/chat response.
type chatLine struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done               bool   `json:"done"`
	DoneReason         string `json:"done_reason,omitempty"`
	TotalDuration      int64  `json:"total_duration,omitempty"`
	PromptEvalCount    int    `json:"prompt_eval_count,omitempty"`
	EvalCount          int    `json:"eval_count,omitempty"`
	EvalDuration       int64  `json:"eval_duration,omitempty"`
	Error              string `json:"error,omitempty"`
}

// StreamChunk represents a single chunk from streaming response.
type StreamChunk struct {
	Content string
	Model   string

	// Statistics, only populated on the final chunk
	Done             bool
	DoneReason       string
	TotalDuration    time.Duration
	EvalDuration     time.Duration
	PromptTokens     int
	CompletionTokens int
}

// TokensPerSecond computes generation speed from the final chunk.
func (c StreamChunk) TokensPerSecond() float64 {
	if c.EvalDuration <= 0 {
		return 0
	}
	return float64(c.CompletionTokens) / c.EvalDuration.Seconds()
}

// ModelInfo describes a locally available model.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListModelsResponse is the response body of /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// OllamaError represents an error from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// FromHistory converts chat history to Ollama messages. The preamble is sent
// as a system message.
func FromHistory(msgs []model.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
