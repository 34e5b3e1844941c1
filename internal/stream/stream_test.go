// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSession_Complete(t *testing.T) {
	s := NewSession("20240301120000")
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.Start(nil))
	assert.True(t, s.Streaming())
	assert.Equal(t, model.RoleAssistant, s.Provisional().Role)
	assert.Empty(t, s.Provisional().Content)

	assert.True(t, s.Apply("Hel"))
	assert.True(t, s.Apply("lo"))
	assert.Equal(t, "Hello", s.Provisional().Content)

	msg, ok := s.Finalize()
	require.True(t, ok)
	assert.Equal(t, "Hello", msg.Content)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.NotContains(t, msg.ID, "pending_")
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, StateFinalizing, s.Outcome())
	assert.Equal(t, 2, s.Fragments())
}

func TestSession_StartTwice(t *testing.T) {
	s := NewSession("c")
	require.NoError(t, s.Start(nil))
	assert.ErrorIs(t, s.Start(nil), model.ErrSessionActive)

	s.Abort()
	assert.ErrorIs(t, s.Start(nil), model.ErrSessionActive, "sessions are single use")
}

func TestSession_AbortDiscards(t *testing.T) {
	cancelled := false
	s := NewSession("c")
	require.NoError(t, s.Start(func() { cancelled = true }))
	s.Apply("partial")

	assert.True(t, s.Abort())
	assert.True(t, cancelled)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, StateAborted, s.Outcome())
	assert.Empty(t, s.Provisional().Content)
	assert.NoError(t, s.Err())

	assert.False(t, s.Apply("late"), "fragments after abort are ignored")
	_, ok := s.Finalize()
	assert.False(t, ok)
	assert.False(t, s.Abort())
}

func TestSession_Fail(t *testing.T) {
	cause := errors.New("boom")
	s := NewSession("c")
	require.NoError(t, s.Start(nil))
	s.Apply("partial")

	err := s.Fail(cause)
	require.ErrorIs(t, err, model.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StateErrored, s.Outcome())
	assert.False(t, s.Streaming())
	assert.Empty(t, s.Provisional().Content)

	assert.NoError(t, s.Fail(cause), "fail after the session ended is a no-op")
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:       "idle",
		StateStreaming:  "streaming",
		StateFinalizing: "finalizing",
		StateAborted:    "aborted",
		StateErrored:    "errored",
		State(42):       "unknown",
	}
	for st, want := range tests {
		assert.Equal(t, want, st.String())
	}
}

// =============================================================================
// PUMP TESTS
// =============================================================================

func scripted(chunks ...Chunk) Source {
	return SourceFunc(func(ctx context.Context, _ Request) <-chan Chunk {
		ch := make(chan Chunk)
		go func() {
			defer close(ch)
			for _, c := range chunks {
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			}
		}()
		return ch
	})
}

func TestPump_DeliversInOrder(t *testing.T) {
	var got []Chunk
	Pump(context.Background(), scripted(Chunk{Content: "a"}, Chunk{Content: "b"}, Chunk{Done: true}), Request{}, func(c Chunk) {
		got = append(got, c)
	})

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "b", got[1].Content)
	assert.True(t, got[2].Done)
}

func TestPump_StopsAtError(t *testing.T) {
	cause := errors.New("bad gateway")
	var got []Chunk
	Pump(context.Background(), scripted(Chunk{Content: "a"}, Chunk{Err: cause}, Chunk{Content: "never"}), Request{}, func(c Chunk) {
		got = append(got, c)
	})

	require.Len(t, got, 2)
	assert.Equal(t, cause, got[1].Err)
}

func TestPump_UnexpectedClose(t *testing.T) {
	var got []Chunk
	Pump(context.Background(), scripted(Chunk{Content: "a"}), Request{}, func(c Chunk) {
		got = append(got, c)
	})

	require.Len(t, got, 2)
	assert.ErrorIs(t, got[1].Err, ErrUnexpectedEOF)
}

func TestPump_CancelStopsDelivery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocking := SourceFunc(func(ctx context.Context, _ Request) <-chan Chunk {
		ch := make(chan Chunk)
		go func() {
			defer close(ch)
			select {
			case ch <- Chunk{Content: "first"}:
			case <-ctx.Done():
				return
			}
			<-ctx.Done()
		}()
		return ch
	})

	delivered := make(chan Chunk, 4)
	done := make(chan struct{})
	go func() {
		Pump(ctx, blocking, Request{}, func(c Chunk) { delivered <- c })
		close(done)
	}()

	first := <-delivered
	assert.Equal(t, "first", first.Content)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pump did not return after cancel")
	}
	assert.Empty(t, delivered)
}
