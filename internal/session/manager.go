// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection and orchestrates streaming.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kosiew/my-chat-gpt/internal/history"
	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/stream"
)

const instrumentationName = "github.com/kosiew/my-chat-gpt/internal/session"

// =============================================================================
// STORE
// =============================================================================

// Store persists chats. Implementations live in the storage package.
type Store interface {
	Save(rec model.ChatRecord) error
	LoadAll() ([]model.ChatRecord, error)
	Delete(id string) error
	Clear() error
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns every chat, the active chat pointer and the streaming session
// of each chat.
//
// All state changes happen under mu, which makes the manager a single
// reducer: user operations and chunks arriving from completion sources are
// applied one at a time, in order.
type Manager struct {
	mu sync.Mutex

	chats  map[string]*chatState
	active string

	source stream.Source
	store  Store
	cfg    Config

	// base is cancelled by Close and parents every stream context
	base   context.Context
	stop   context.CancelFunc
	closed bool

	subs   map[int]chan Event
	nextID int

	logger *slog.Logger
	tracer trace.Tracer
	inst   instruments
	now    func() time.Time
}

// chatState is the mutable state of one chat, guarded by Manager.mu.
type chatState struct {
	id      string
	summary string
	draft   string
	hist    *history.History

	// set only while a session is streaming
	session *stream.Session
	span    trace.Span
	spanCtx context.Context
	done    chan struct{}

	// pending debounced draft write
	draftTimer *time.Timer
}

// Config holds configuration for the chat manager.
type Config struct {
	// Model and MaxTokens are passed to the completion source on every request.
	Model     string
	MaxTokens int

	// StreamTimeout force-fails a session that has not completed in time.
	// Zero means no timeout.
	StreamTimeout time.Duration

	// EventBuffer is the capacity of each subscriber channel.
	EventBuffer int

	// DraftSaveDelay batches draft writes. Zero persists every draft change.
	DraftSaveDelay time.Duration

	// Store persists chats after every committed change. Nil disables persistence.
	Store Store

	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter

	// Now overrides the clock used for chat ids.
	Now func() time.Time
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		MaxTokens:      4000,
		EventBuffer:    1024,
		DraftSaveDelay: 500 * time.Millisecond,
	}
}

// NewManager creates a manager that requests completions from src.
func NewManager(src stream.Source, cfg Config) *Manager {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	meter := cfg.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	base, stop := context.WithCancel(context.Background())
	return &Manager{
		chats:  make(map[string]*chatState),
		source: src,
		store:  cfg.Store,
		cfg:    cfg,
		base:   base,
		stop:   stop,
		subs:   make(map[int]chan Event),
		logger: logger,
		tracer: tracer,
		inst:   newInstruments(meter, logger),
		now:    now,
	}
}

// =============================================================================
// CHAT COLLECTION
// =============================================================================

// CreateChat creates a chat seeded with a preamble message and makes it the
// active chat. It returns the new chat id.
func (m *Manager) CreateChat(preamble string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextChatIDLocked()
	h, err := history.New(model.NewPreamble(preamble))
	if err != nil {
		return "", err
	}
	c := &chatState{id: id, summary: model.DefaultSummary, hist: h}
	m.chats[id] = c
	m.active = id

	m.logger.Debug("chat created", "chat_id", id)
	m.persistLocked(c)
	m.publishLocked(Event{Kind: EventUpdated, ChatID: id})
	return id, nil
}

// nextChatIDLocked derives an id from the clock, advancing one second at a
// time until it is unused.
func (m *Manager) nextChatIDLocked() string {
	t := m.now()
	id := model.NewChatID(t)
	for {
		if _, taken := m.chats[id]; !taken {
			return id
		}
		t = t.Add(time.Second)
		id = model.NewChatID(t)
	}
}

// SwitchChat makes id the active chat.
func (m *Manager) SwitchChat(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chats[id]; !ok {
		return model.NotFound("session.switch_chat", id)
	}
	m.active = id
	m.publishLocked(Event{Kind: EventUpdated, ChatID: id})
	return nil
}

// Active returns the active chat id. ok is false when no chat is active.
func (m *Manager) Active() (id string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.active != ""
}

// DeleteChat removes a chat and its history, aborting its session first.
// Deleting the active chat leaves no chat active.
func (m *Manager) DeleteChat(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return model.NotFound("session.delete_chat", id)
	}
	m.abortLocked(c)
	c.stopDraftTimer()
	delete(m.chats, id)
	if m.active == id {
		m.active = ""
	}

	if m.store != nil {
		if err := m.store.Delete(id); err != nil {
			m.logger.Warn("delete persisted chat", "chat_id", id, "error", err)
		}
	}
	m.publishLocked(Event{Kind: EventUpdated, ChatID: id})
	return nil
}

// ClearAllChats removes every chat. Callers are expected to have asked the
// user for confirmation.
func (m *Manager) ClearAllChats() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.chats {
		m.abortLocked(c)
		c.stopDraftTimer()
	}
	n := len(m.chats)
	m.chats = make(map[string]*chatState)
	m.active = ""

	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn("clear persisted chats", "error", err)
		}
	}
	m.logger.Info("all chats cleared", "count", n)
	m.publishLocked(Event{Kind: EventUpdated})
}

// UpdateDraft stores the uncommitted input text of a chat. Store writes are
// batched by Config.DraftSaveDelay and flushed by Close.
func (m *Manager) UpdateDraft(id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return model.NotFound("session.update_draft", id)
	}
	if c.draft == text {
		return nil
	}
	c.draft = text
	if m.store == nil {
		return nil
	}
	if m.cfg.DraftSaveDelay <= 0 {
		m.persistLocked(c)
		return nil
	}
	if c.draftTimer == nil {
		c.draftTimer = time.AfterFunc(m.cfg.DraftSaveDelay, func() { m.flushDraft(c) })
	}
	return nil
}

func (m *Manager) flushDraft(c *chatState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || c.draftTimer == nil || m.chats[c.id] != c {
		return
	}
	m.persistLocked(c)
}

func (c *chatState) stopDraftTimer() {
	if c.draftTimer != nil {
		c.draftTimer.Stop()
		c.draftTimer = nil
	}
}

// EditSummary renames a chat.
func (m *Manager) EditSummary(id, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return model.NotFound("session.edit_summary", id)
	}
	c.summary = summary
	m.persistLocked(c)
	m.publishLocked(Event{Kind: EventUpdated, ChatID: id})
	return nil
}

// =============================================================================
// HISTORY OPERATIONS
// =============================================================================

// Submit appends a message to a chat and clears its draft. An empty role
// means user. Submit does not request a completion; callers follow up with
// RequestCompletion when they want one.
func (m *Manager) Submit(id, text string, role model.Role) (model.Message, error) {
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return model.Message{}, fmt.Errorf("session.submit: invalid role %q", role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[id]
	if !ok {
		return model.Message{}, model.NotFound("session.submit", id)
	}
	msg := model.NewMessage(role, text)
	msg.Timestamp = m.now()
	if err := c.hist.Append(msg); err != nil {
		return model.Message{}, err
	}
	c.draft = ""

	m.persistLocked(c)
	m.publishLocked(Event{Kind: EventUpdated, ChatID: id, Message: msg})
	return msg, nil
}

// DeleteMessage removes one message from a chat's history.
func (m *Manager) DeleteMessage(chatID, msgID string) error {
	return m.mutateHistory("session.delete_message", chatID, func(h *history.History) error {
		return h.Delete(msgID)
	})
}

// EditMessage replaces the content of one message in place.
func (m *Manager) EditMessage(chatID, msgID, content string) error {
	return m.mutateHistory("session.edit_message", chatID, func(h *history.History) error {
		return h.Edit(msgID, content)
	})
}

// SetImportant flags or unflags one message.
func (m *Manager) SetImportant(chatID, msgID string, important bool) error {
	return m.mutateHistory("session.set_important", chatID, func(h *history.History) error {
		return h.SetImportant(msgID, important)
	})
}

func (m *Manager) mutateHistory(op, chatID string, fn func(*history.History) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chats[chatID]
	if !ok {
		return model.NotFound(op, chatID)
	}
	if err := fn(c.hist); err != nil {
		return err
	}
	m.persistLocked(c)
	m.publishLocked(Event{Kind: EventUpdated, ChatID: chatID})
	return nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Load replaces the chat collection with the chats held by the store and
// activates the newest one. Records that cannot be rebuilt are skipped.
func (m *Manager) Load() error {
	if m.store == nil {
		return nil
	}
	recs, err := m.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load chats: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.chats {
		m.abortLocked(c)
	}
	m.chats = make(map[string]*chatState, len(recs))
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		h, err := history.New(rec.Messages...)
		if err != nil {
			m.logger.Warn("skipping unreadable chat", "chat_id", rec.ID, "error", err)
			continue
		}
		summary := rec.Summary
		if summary == "" {
			summary = model.DefaultSummary
		}
		m.chats[rec.ID] = &chatState{id: rec.ID, summary: summary, draft: rec.Draft, hist: h}
		ids = append(ids, rec.ID)
	}

	m.active = ""
	if len(ids) > 0 {
		model.SortChatIDs(ids)
		m.active = ids[0]
	}
	m.logger.Info("chats loaded", "count", len(ids))
	m.publishLocked(Event{Kind: EventUpdated})
	return nil
}

func (m *Manager) persistLocked(c *chatState) {
	c.stopDraftTimer()
	if m.store == nil {
		return
	}
	rec := model.ChatRecord{
		ID:        c.id,
		Summary:   c.summary,
		Draft:     c.draft,
		Messages:  c.hist.Messages(),
		UpdatedAt: m.now(),
	}
	if err := m.store.Save(rec); err != nil {
		m.logger.Warn("persist chat", "chat_id", c.id, "error", err)
	}
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// Close aborts every streaming session and closes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	for _, c := range m.chats {
		m.abortLocked(c)
		if c.draftTimer != nil {
			m.persistLocked(c)
		}
	}
	m.closed = true
	m.stop()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
}
