// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream drives one in-flight assistant completion.
package stream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
	StateAborted
	StateErrored
)

// String returns the state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateAborted:
		return "aborted"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the state machine for one completion request of one chat.
//
// A Session accumulates fragments into a provisional assistant message and
// ends in exactly one of three ways: Finalize commits the message, Abort
// and Fail discard it. Every transition returns the session to idle; a new
// request needs a new Session.
//
// Session does no locking. The owner must serialize calls, which the chat
// manager does under its reducer lock.
type Session struct {
	id      string
	chatID  string
	state   State
	outcome State
	msg     model.Message
	started time.Time
	chunks  int
	err     error
	cancel  context.CancelFunc
}

// NewSession creates an idle session for a chat.
func NewSession(chatID string) *Session {
	return &Session{
		id:     "sess_" + uuid.NewString(),
		chatID: chatID,
		state:  StateIdle,
	}
}

// ID returns the identity checked before every fragment is applied.
func (s *Session) ID() string { return s.id }

// ChatID returns the chat the session belongs to.
func (s *Session) ChatID() string { return s.chatID }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Outcome returns the terminal state the session passed through on its way
// back to idle, or StateIdle if it has not ended.
func (s *Session) Outcome() State { return s.outcome }

// Err returns the upstream error recorded by Fail.
func (s *Session) Err() error { return s.err }

// Streaming reports whether the session is accepting fragments.
func (s *Session) Streaming() bool { return s.state == StateStreaming }

// Fragments returns how many fragments have been applied.
func (s *Session) Fragments() int { return s.chunks }

// Elapsed returns the time since Start.
func (s *Session) Elapsed() time.Duration {
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

// Provisional returns a copy of the message being accumulated.
// It is only meaningful while streaming.
func (s *Session) Provisional() model.Message { return s.msg }

// Start moves idle to streaming and creates the empty provisional message.
// cancel, if non-nil, is invoked when the session ends for any reason.
func (s *Session) Start(cancel context.CancelFunc) error {
	if s.state != StateIdle || s.outcome != StateIdle {
		return model.SessionActive("stream.start", s.chatID)
	}
	s.state = StateStreaming
	s.started = time.Now()
	s.cancel = cancel
	s.msg = model.Message{
		ID:        "pending_" + s.id,
		Role:      model.RoleAssistant,
		Timestamp: s.started,
	}
	return nil
}

// Apply appends a fragment to the provisional message. It reports false and
// changes nothing when the session is not streaming.
func (s *Session) Apply(fragment string) bool {
	if s.state != StateStreaming {
		return false
	}
	s.msg.Content += fragment
	s.chunks++
	return true
}

// Finalize ends a streaming session successfully and returns the message to
// commit, carrying a fresh durable id.
func (s *Session) Finalize() (model.Message, bool) {
	if s.state != StateStreaming {
		return model.Message{}, false
	}
	s.state = StateFinalizing
	out := s.msg
	out.ID = model.NewMessageID()
	out.Timestamp = time.Now()
	s.end(StateFinalizing)
	return out, true
}

// Abort discards the partial content. It reports whether the session was
// streaming.
func (s *Session) Abort() bool {
	if s.state != StateStreaming {
		return false
	}
	s.state = StateAborted
	s.end(StateAborted)
	return true
}

// Fail records an upstream error and discards the partial content. The
// returned error matches model.ErrUpstream and wraps cause.
func (s *Session) Fail(cause error) error {
	if s.state != StateStreaming {
		return nil
	}
	s.state = StateErrored
	s.err = model.Upstream("stream", s.chatID, cause)
	s.end(StateErrored)
	return s.err
}

func (s *Session) end(outcome State) {
	s.outcome = outcome
	s.msg = model.Message{}
	s.state = StateIdle
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
