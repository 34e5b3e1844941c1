// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kosiew/my-chat-gpt/internal/stream"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches client errors of the same type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s). Streams are bounded
	// by their context only.
	Timeout time.Duration

	// DefaultModel is used when a request names no model (default: "llama3.2")
	DefaultModel string

	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:11434",
		Timeout:      30 * time.Second,
		DefaultModel: "llama3.2",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API. It implements
// stream.Source and is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	streamHTTP *http.Client
	logger     *slog.Logger
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.DefaultModel == "" {
		config.DefaultModel = defaults.DefaultModel
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		streamHTTP: &http.Client{},
		logger:     logger,
	}
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// ListModels retrieves all available models from Ollama.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "failed to list models: " + resp.Status,
		}
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// ChatStream sends a streaming chat request and calls the callback for each
// chunk, synchronously and in arrival order. It returns when the done chunk
// has been delivered or an error occurs.
func (c *Client) ChatStream(ctx context.Context, model string, messages []Message, opts *Options, callback StreamCallback) error {
	if model == "" {
		model = c.config.DefaultModel
	}

	body, err := json.Marshal(ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
		Options:  opts,
	})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var ollamaErr OllamaError
		if err := json.NewDecoder(resp.Body).Decode(&ollamaErr); err == nil && ollamaErr.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: ollamaErr.Error}
		}
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "stream request failed: " + resp.Status,
		}
	}

	return NewStreamReader(resp.Body).Process(ctx, callback)
}

// Stream implements stream.Source. Fragments are forwarded as they arrive,
// followed by a done chunk or a single error chunk. Nothing is sent once ctx
// is cancelled.
func (c *Client) Stream(ctx context.Context, req stream.Request) <-chan stream.Chunk {
	ch := make(chan stream.Chunk)

	go func() {
		defer close(ch)

		send := func(chunk stream.Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var opts *Options
		if req.MaxTokens > 0 {
			opts = &Options{NumPredict: req.MaxTokens}
		}

		err := c.ChatStream(ctx, req.Model, FromHistory(req.Messages), opts, func(chunk StreamChunk) {
			if chunk.Content != "" {
				send(stream.Chunk{Content: chunk.Content})
			}
			if chunk.Done {
				c.logger.Debug("ollama stream done",
					"chat_id", req.ChatID,
					"model", chunk.Model,
					"completion_tokens", chunk.CompletionTokens,
					"tokens_per_sec", chunk.TokensPerSecond())
				send(stream.Chunk{Done: true})
			}
		})
		if err != nil && ctx.Err() == nil {
			send(stream.Chunk{Err: err})
		}
	}()

	return ch
}

// =============================================================================
// UTILITY METHODS
// =============================================================================

// transportError maps an http.Client failure to a ClientError.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
