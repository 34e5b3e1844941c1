// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
package chat

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/stream"
	"github.com/kosiew/my-chat-gpt/internal/ui/components"
	"github.com/kosiew/my-chat-gpt/internal/upload"
)

// =============================================================================
// HELPERS
// =============================================================================

func scriptSource(chunks ...stream.Chunk) stream.Source {
	return stream.SourceFunc(func(ctx context.Context, _ stream.Request) <-chan stream.Chunk {
		ch := make(chan stream.Chunk)
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

func hangingSource() stream.Source {
	return stream.SourceFunc(func(ctx context.Context, _ stream.Request) <-chan stream.Chunk {
		ch := make(chan stream.Chunk)
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch
	})
}

func helloSource() stream.Source {
	return scriptSource(
		stream.Chunk{Content: "Hello "},
		stream.Chunk{Content: "there"},
		stream.Chunk{Done: true},
	)
}

type harness struct {
	mgr  *session.Manager
	cfg  *config.Config
	bell *bytes.Buffer
}

func newHarness(t *testing.T, src stream.Source) *harness {
	t.Helper()
	mgr := session.NewManager(src, session.DefaultConfig())
	t.Cleanup(mgr.Close)
	cfg := config.Default()
	cfg.SetDefaults()
	return &harness{mgr: mgr, cfg: cfg, bell: &bytes.Buffer{}}
}

func (h *harness) model(t *testing.T) Model {
	t.Helper()
	m := New(Options{
		Manager:       h.mgr,
		Uploader:      upload.New(h.mgr, upload.Config{ChunkSize: 5}, nil),
		Config:        h.cfg,
		Bell:          h.bell,
		MarkdownStyle: "notty",
	})
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func enter(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	return updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func ctrl(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: k})
}

// runCmd executes cmd and every command of a batch, returning the messages.
// Tick commands sleep for one frame.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func waitIdle(t *testing.T, mgr *session.Manager, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, mgr.Wait(ctx, id))
}

func activeID(t *testing.T, mgr *session.Manager) string {
	t.Helper()
	id, ok := mgr.Active()
	require.True(t, ok, "no active chat")
	return id
}

// =============================================================================
// TESTS
// =============================================================================

func TestModel_EmptyState(t *testing.T) {
	h := newHarness(t, helloSource())
	m := h.model(t)

	_, ok := m.ActiveChat()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "No chats yet")
	assert.Equal(t, StateReady, m.GetState())
}

func TestModel_SubmitStreamsReplyAndRingsBell(t *testing.T) {
	h := newHarness(t, helloSource())
	m := h.model(t)

	m = typeText(t, m, "hello")
	m, _ = enter(t, m)
	assert.Empty(t, m.InputValue())

	id := activeID(t, h.mgr)
	waitIdle(t, h.mgr, id)

	m, cmd := updateCmd(t, m, EventMsg{Event: session.Event{Kind: session.EventCompleted, ChatID: id}})
	runCmd(cmd)
	assert.Equal(t, "\a", h.bell.String())

	chat, ok := m.ActiveChat()
	require.True(t, ok)
	assert.False(t, chat.BotTyping)
	msgs := chat.History.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleUser, msgs[1].Role)
	assert.Equal(t, "Hello there", msgs[2].Content)

	out := m.View()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "Hello there")
	assert.Contains(t, out, "Regenerate")
	assert.NotContains(t, out, h.cfg.Chat.Preamble)
}

func TestModel_MuteSound(t *testing.T) {
	h := newHarness(t, helloSource())
	h.cfg.UI.MuteSound = true
	m := h.model(t)

	m = typeText(t, m, "hi")
	m, _ = enter(t, m)
	id := activeID(t, h.mgr)
	waitIdle(t, h.mgr, id)

	_, cmd := updateCmd(t, m, EventMsg{Event: session.Event{Kind: session.EventCompleted, ChatID: id}})
	runCmd(cmd)
	assert.Empty(t, h.bell.String())
}

func TestModel_StopDiscardsPartialReply(t *testing.T) {
	h := newHarness(t, hangingSource())
	m := h.model(t)

	m = typeText(t, m, "hello")
	m, _ = enter(t, m)
	assert.Equal(t, StateStreaming, m.GetState())

	m = ctrl(t, m, tea.KeyCtrlS)
	assert.Equal(t, StateReady, m.GetState())

	chat, ok := m.ActiveChat()
	require.True(t, ok)
	assert.False(t, chat.BotTyping)
	last, _ := chat.History.LastNonPreamble()
	assert.Equal(t, model.RoleUser, last.Role)
}

func TestModel_SubmitWhileStreamingIsRefused(t *testing.T) {
	h := newHarness(t, hangingSource())
	m := h.model(t)

	m = typeText(t, m, "first")
	m, _ = enter(t, m)
	m = typeText(t, m, "second")
	m, _ = enter(t, m)

	assert.Equal(t, "second", m.InputValue())
	chat, _ := m.ActiveChat()
	assert.Equal(t, 2, chat.History.Len())
}

func TestModel_DraftFollowsActiveChat(t *testing.T) {
	h := newHarness(t, helloSource())
	first, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	second, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	m := h.model(t)
	m = typeText(t, m, "draft two")

	chat, err := h.mgr.Chat(second)
	require.NoError(t, err)
	assert.Equal(t, "draft two", chat.Draft)

	m = ctrl(t, m, tea.KeyTab)
	assert.Equal(t, first, activeID(t, h.mgr))
	assert.Empty(t, m.InputValue())

	m = ctrl(t, m, tea.KeyShiftTab)
	assert.Equal(t, second, activeID(t, h.mgr))
	assert.Equal(t, "draft two", m.InputValue())
}

func TestModel_NewAndDeleteChat(t *testing.T) {
	h := newHarness(t, helloSource())
	m := h.model(t)

	m = ctrl(t, m, tea.KeyCtrlN)
	first := activeID(t, h.mgr)
	m = ctrl(t, m, tea.KeyCtrlN)
	second := activeID(t, h.mgr)
	require.Len(t, h.mgr.List(), 2)

	m = ctrl(t, m, tea.KeyCtrlX)
	assert.Len(t, h.mgr.List(), 1)
	assert.Equal(t, first, activeID(t, h.mgr))
	_, err := h.mgr.Chat(second)
	assert.ErrorIs(t, err, model.ErrNotFound)

	m = ctrl(t, m, tea.KeyCtrlX)
	assert.Empty(t, h.mgr.List())
	_, ok := m.ActiveChat()
	assert.False(t, ok)
}

func TestModel_Generate(t *testing.T) {
	h := newHarness(t, helloSource())
	id, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	_, err = h.mgr.Submit(id, "question", model.RoleUser)
	require.NoError(t, err)

	m := h.model(t)
	assert.Contains(t, m.View(), "Generate")

	m = ctrl(t, m, tea.KeyCtrlG)
	waitIdle(t, h.mgr, id)
	m = update(t, m, EventMsg{Event: session.Event{Kind: session.EventCompleted, ChatID: id}})

	chat, _ := m.ActiveChat()
	require.Equal(t, 3, chat.History.Len())

	// regenerate replaces the reply rather than adding one
	m = ctrl(t, m, tea.KeyCtrlG)
	waitIdle(t, h.mgr, id)
	m = update(t, m, EventMsg{Event: session.Event{Kind: session.EventCompleted, ChatID: id}})
	chat, _ = m.ActiveChat()
	assert.Equal(t, 3, chat.History.Len())
}

func TestModel_ErroredEventShowsError(t *testing.T) {
	h := newHarness(t, scriptSource(stream.Chunk{Err: errors.New("boom")}))
	m := h.model(t)

	m = typeText(t, m, "hello")
	m, _ = enter(t, m)
	id := activeID(t, h.mgr)
	waitIdle(t, h.mgr, id)

	m = update(t, m, EventMsg{Event: session.Event{
		Kind:   session.EventErrored,
		ChatID: id,
		Err:    model.Upstream("test", id, errors.New("boom")),
	}})
	assert.Equal(t, components.StatusError, m.statusBar.Status)
	assert.Contains(t, m.View(), "boom")
	assert.Empty(t, h.bell.String())
}

func TestModel_SlashCommands(t *testing.T) {
	h := newHarness(t, helloSource())
	id, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	_, err = h.mgr.Submit(id, "note", model.RoleUser)
	require.NoError(t, err)
	m := h.model(t)

	run := func(line string) {
		m = typeText(t, m, line)
		m, _ = enter(t, m)
	}

	run("/summary Renamed chat")
	chat, _ := h.mgr.Chat(id)
	assert.Equal(t, "Renamed chat", chat.Summary)
	assert.Empty(t, chat.Draft)

	run("/star")
	chat, _ = h.mgr.Chat(id)
	last, _ := chat.History.LastNonPreamble()
	assert.True(t, last.IsImportant)

	run("/system be brief")
	chat, _ = h.mgr.Chat(id)
	last, _ = chat.History.LastNonPreamble()
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.False(t, chat.BotTyping)

	run("/rm")
	chat, _ = h.mgr.Chat(id)
	last, _ = chat.History.LastNonPreamble()
	assert.Equal(t, "note", last.Content)

	run("/bogus")
	assert.Equal(t, components.StatusError, m.statusBar.Status)
	assert.Contains(t, m.statusBar.Message, "unknown command /bogus")
}

func TestModel_Upload(t *testing.T) {
	h := newHarness(t, helloSource())
	id, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	m := h.model(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("abcdefghij"), 0o600))

	m = typeText(t, m, "/upload "+path)
	m, cmd := enter(t, m)
	assert.Equal(t, StateUploading, m.GetState())
	assert.Contains(t, m.View(), "Uploading")

	var done bool
	for _, msg := range runCmd(cmd) {
		if _, ok := msg.(uploadDoneMsg); ok {
			done = true
		}
		m = update(t, m, msg)
	}
	for !done {
		msg := waitForUpload(m.uploadCh)()
		require.NotNil(t, msg, "upload channel closed without a done message")
		if _, ok := msg.(uploadDoneMsg); ok {
			done = true
		}
		m = update(t, m, msg)
	}

	assert.Equal(t, StateReady, m.GetState())
	assert.Contains(t, m.statusBar.Message, "uploaded notes.txt in 2 parts")

	chat, _ := h.mgr.Chat(id)
	var contents []string
	for _, msg := range chat.History.Messages() {
		contents = append(contents, msg.Content)
	}
	joined := strings.Join(contents, "\n")
	assert.Contains(t, joined, upload.FormatPart(1, "notes.txt", "abcde"))
	assert.Contains(t, joined, upload.FormatPart(2, "notes.txt", "fghij"))
	assert.False(t, chat.BotTyping)
}

func TestModel_UploadMissingFile(t *testing.T) {
	h := newHarness(t, helloSource())
	_, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	m := h.model(t)

	m = typeText(t, m, "/upload "+filepath.Join(t.TempDir(), "missing.txt"))
	m, _ = enter(t, m)
	assert.Equal(t, components.StatusError, m.statusBar.Status)
	assert.Equal(t, StateReady, m.GetState())
}

func TestModel_SettingsSwapSendKey(t *testing.T) {
	h := newHarness(t, helloSource())
	_, err := h.mgr.CreateChat("p")
	require.NoError(t, err)
	m := h.model(t)

	cfg := h.cfg.Clone()
	cfg.UI.ShiftSend = true
	m = update(t, m, SettingsMsg{Config: cfg})
	assert.Equal(t, "settings reloaded", m.statusBar.Message)

	m = typeText(t, m, "line one")
	m, _ = enter(t, m)
	assert.Equal(t, "line one\n", m.InputValue())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	assert.Empty(t, m.InputValue())
}

func TestModel_TogglePreamble(t *testing.T) {
	h := newHarness(t, helloSource())
	_, err := h.mgr.CreateChat("a very particular preamble")
	require.NoError(t, err)
	m := h.model(t)

	assert.NotContains(t, m.View(), "a very particular preamble")
	m = ctrl(t, m, tea.KeyCtrlP)
	assert.Contains(t, m.View(), "a very particular preamble")
}

func TestModel_EventsSubscription(t *testing.T) {
	h := newHarness(t, helloSource())
	events, cancel := h.mgr.Subscribe()
	defer cancel()

	_, err := h.mgr.CreateChat("p")
	require.NoError(t, err)

	msg := waitForEvent(events)()
	ev, ok := msg.(EventMsg)
	require.True(t, ok)
	assert.Equal(t, session.EventUpdated, ev.Event.Kind)

	cancel()
	assert.IsType(t, eventsClosedMsg{}, waitForEvent(events)())
	assert.Nil(t, waitForEvent(nil))
}

// =============================================================================
// FRAME LIMITER AND CANCEL MANAGER
// =============================================================================

func TestFrameLimiter(t *testing.T) {
	f := newFrameLimiter(10)
	start := time.Unix(1000, 0)

	assert.True(t, f.allow(start))
	assert.False(t, f.allow(start.Add(50*time.Millisecond)))
	assert.True(t, f.pending)

	assert.NotNil(t, f.schedule())
	assert.Nil(t, f.schedule(), "second tick scheduled while one is in flight")

	assert.True(t, f.tick(start.Add(100*time.Millisecond)))
	assert.False(t, f.pending)
	assert.False(t, f.tick(start.Add(200*time.Millisecond)))
	assert.True(t, f.allow(start.Add(300*time.Millisecond)))
}

func TestModel_StatusErrorMsg(t *testing.T) {
	h := newHarness(t, helloSource())
	m := h.model(t)

	m = update(t, m, StatusErrorMsg{Err: errors.New("ollama backend: Ollama is not running")})
	assert.Equal(t, components.StatusError, m.statusBar.Status)
	assert.Contains(t, m.statusBar.Message, "not running")
	assert.Equal(t, StateReady, m.GetState())
}

func TestModel_TickResyncsWithoutTerminalEvent(t *testing.T) {
	h := newHarness(t, hangingSource())
	id, err := h.mgr.CreateChat("")
	require.NoError(t, err)
	_, err = h.mgr.RequestCompletion(id)
	require.NoError(t, err)

	m := h.model(t)
	require.True(t, m.chat.BotTyping)
	assert.Equal(t, StateStreaming, m.GetState())

	// no event channel is attached, so the abort is only visible via a snapshot
	require.NoError(t, h.mgr.Abort(id))
	m, cmd := updateCmd(t, m, StreamTickMsg{Time: time.Now()})

	assert.False(t, m.chat.BotTyping)
	assert.Equal(t, StateReady, m.GetState())
	assert.Nil(t, cmd, "ticking stops once the reply has ended")
}

func TestCancelManager(t *testing.T) {
	cm := newCancelManager()
	assert.False(t, cm.active())
	assert.False(t, cm.cancel())

	first := cm.start(context.Background())
	second := cm.start(context.Background())
	assert.Error(t, first.Err(), "starting again cancels the previous context")
	assert.True(t, cm.active())

	assert.True(t, cm.cancel())
	assert.Error(t, second.Err())
	assert.False(t, cm.active())
}
