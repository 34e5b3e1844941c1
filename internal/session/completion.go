// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection and orchestrates streaming.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/stream"
)

// =============================================================================
// STREAMING
// =============================================================================

var errManagerClosed = errors.New("session.start: manager closed")

// RequestCompletion starts a streaming session for a chat using its whole
// history as context. It returns the session id.
func (m *Manager) RequestCompletion(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return "", model.NotFound("session.request_completion", id)
	}
	return m.startLocked(c)
}

// Regenerate drops the trailing assistant reply, if the last non-preamble
// message is one, and requests a fresh completion.
func (m *Manager) Regenerate(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return "", model.NotFound("session.regenerate", id)
	}
	if c.session != nil {
		return "", model.SessionActive("session.regenerate", id)
	}
	if m.closed {
		return "", errManagerClosed
	}
	if last, ok := c.hist.LastNonPreamble(); ok && last.Role == model.RoleAssistant {
		if err := c.hist.Delete(last.ID); err != nil {
			return "", err
		}
		m.persistLocked(c)
	}
	return m.startLocked(c)
}

// Abort stops the chat's streaming session, discarding partial content.
// It is a no-op when nothing is streaming.
func (m *Manager) Abort(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return model.NotFound("session.abort", id)
	}
	m.abortLocked(c)
	return nil
}

// Wait blocks until the chat has no streaming session or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) error {
	m.mu.Lock()
	c, ok := m.chats[id]
	if !ok {
		m.mu.Unlock()
		return model.NotFound("session.wait", id)
	}
	done := c.done
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) startLocked(c *chatState) (string, error) {
	if c.session != nil {
		return "", model.SessionActive("session.start", c.id)
	}
	if m.closed {
		return "", errManagerClosed
	}

	ctx, cancel := context.WithCancel(m.base)
	if m.cfg.StreamTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, m.cfg.StreamTimeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}

	sess := stream.NewSession(c.id)
	if err := sess.Start(cancel); err != nil {
		cancel()
		return "", err
	}

	req := stream.Request{
		ChatID:    c.id,
		Messages:  c.hist.Messages(),
		Model:     m.cfg.Model,
		MaxTokens: m.cfg.MaxTokens,
	}
	spanCtx, span := m.tracer.Start(ctx, "chat.completion", trace.WithAttributes(
		attribute.String("chat.id", c.id),
		attribute.String("session.id", sess.ID()),
		attribute.String("chat.model", m.cfg.Model),
		attribute.Int("chat.messages", len(req.Messages)),
	))

	c.session = sess
	c.span = span
	c.spanCtx = spanCtx
	c.done = make(chan struct{})

	m.logger.Debug("completion started", "chat_id", c.id, "session_id", sess.ID())
	m.publishLocked(Event{Kind: EventStarted, ChatID: c.id, SessionID: sess.ID()})

	go m.pump(spanCtx, c.id, sess.ID(), req)
	return sess.ID(), nil
}

// pump forwards chunks from the source into the reducer. When the stream
// context ends without a terminal chunk the context error is delivered; the
// identity check drops it if the session was aborted.
func (m *Manager) pump(ctx context.Context, chatID, sessionID string, req stream.Request) {
	stream.Pump(ctx, m.source, req, func(c stream.Chunk) {
		m.apply(chatID, sessionID, c)
	})
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("completion timed out after %s: %w", m.cfg.StreamTimeout, err)
		}
		m.apply(chatID, sessionID, stream.Chunk{Err: err})
	}
}

// apply is the reducer step for one chunk.
func (m *Manager) apply(chatID, sessionID string, chunk stream.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[chatID]
	if !ok || c.session == nil || c.session.ID() != sessionID || !c.session.Streaming() {
		m.logger.Debug("dropping stale chunk", "chat_id", chatID, "session_id", sessionID)
		return
	}
	sess := c.session

	switch {
	case chunk.Err != nil:
		err := sess.Fail(chunk.Err)
		m.logger.Warn("completion failed", "chat_id", chatID, "session_id", sessionID, "error", chunk.Err)
		m.finishLocked(c, err)
		m.publishLocked(Event{Kind: EventErrored, ChatID: chatID, SessionID: sessionID, Err: err})

	case chunk.Done:
		msg, _ := sess.Finalize()
		if err := c.hist.Append(msg); err != nil {
			m.logger.Error("commit completion", "chat_id", chatID, "message_id", msg.ID, "error", err)
		}
		m.persistLocked(c)
		m.finishLocked(c, nil)
		m.logger.Debug("completion committed", "chat_id", chatID, "message_id", msg.ID)
		m.publishLocked(Event{Kind: EventCompleted, ChatID: chatID, SessionID: sessionID, Message: msg})

	default:
		sess.Apply(chunk.Content)
		m.inst.fragments.Add(c.spanCtx, 1)
		m.publishLocked(Event{Kind: EventFragment, ChatID: chatID, SessionID: sessionID, Fragment: chunk.Content})
	}
}

func (m *Manager) abortLocked(c *chatState) {
	if c.session == nil || !c.session.Streaming() {
		return
	}
	sess := c.session
	sess.Abort()
	m.logger.Debug("completion aborted", "chat_id", c.id, "session_id", sess.ID())
	m.finishLocked(c, nil)
	m.publishLocked(Event{Kind: EventAborted, ChatID: c.id, SessionID: sess.ID()})
}

// finishLocked records telemetry for an ended session and detaches it.
func (m *Manager) finishLocked(c *chatState, err error) {
	sess := c.session
	outcome := sess.Outcome().String()
	if sess.Outcome() == stream.StateFinalizing {
		outcome = "completed"
	}

	m.inst.record(c.spanCtx, outcome, sess.Elapsed())
	c.span.SetAttributes(
		attribute.Int("chat.fragments", sess.Fragments()),
		attribute.String("chat.outcome", outcome),
	)
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
	}
	c.span.End()

	close(c.done)
	c.session = nil
	c.span = nil
	c.spanCtx = nil
	c.done = nil
}
