// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai streams chat completions from OpenAI-compatible APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/stream"
)

// DefaultModel is used when a request names no model.
const DefaultModel = goopenai.GPT3Dot5Turbo

// ErrNoAPIKey is returned by NewClient when no API key is configured.
var ErrNoAPIKey = errors.New("openai: api key is required")

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for a local proxy.
	BaseURL string

	// DefaultModel is used when a request names no model.
	DefaultModel string

	Logger *slog.Logger
}

// =============================================================================
// CLIENT
// =============================================================================

// Client implements stream.Source on top of go-openai.
type Client struct {
	api    *goopenai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates a client. An empty API key is an error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	modelName := cfg.DefaultModel
	if modelName == "" {
		modelName = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    goopenai.NewClientWithConfig(clientConfig),
		model:  modelName,
		logger: logger,
	}, nil
}

// Model returns the default model name.
func (c *Client) Model() string {
	return c.model
}

// ListModels returns the sorted ids of the models available to the API key.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai list models: %w", err)
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stream implements stream.Source. Content deltas are forwarded in order and
// the stream ends with a done chunk or one error chunk. Nothing is sent once
// ctx is cancelled.
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
		fail := func(err error) {
			if ctx.Err() == nil {
				send(stream.Chunk{Err: err})
			}
		}

		resp, err := c.api.CreateChatCompletionStream(ctx, c.buildRequest(req))
		if err != nil {
			fail(fmt.Errorf("openai stream: %w", err))
			return
		}
		defer resp.Close()

		for {
			delta, err := resp.Recv()
			if errors.Is(err, io.EOF) {
				c.logger.Debug("openai stream done", "chat_id", req.ChatID)
				send(stream.Chunk{Done: true})
				return
			}
			if err != nil {
				fail(fmt.Errorf("openai stream recv: %w", err))
				return
			}
			if len(delta.Choices) == 0 {
				continue
			}
			if content := delta.Choices[0].Delta.Content; content != "" {
				if !send(stream.Chunk{Content: content}) {
					return
				}
			}
		}
	}()

	return ch
}

func (c *Client) buildRequest(req stream.Request) goopenai.ChatCompletionRequest {
	name := req.Model
	if name == "" {
		name = c.model
	}
	return goopenai.ChatCompletionRequest{
		Model:     name,
		Messages:  ToMessages(req.Messages),
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}
}

// ToMessages converts a history to API messages. The preamble is sent with
// the system role.
func ToMessages(msgs []model.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := string(m.Role)
		if m.IsPreamble {
			role = goopenai.ChatMessageRoleSystem
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
