// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
package chat

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/ui/components"
	"github.com/kosiew/my-chat-gpt/internal/ui/styles"
	"github.com/kosiew/my-chat-gpt/internal/upload"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat screen.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // The active chat is receiving a reply
	StateUploading              // A file upload is running
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures a chat screen.
type Options struct {
	Manager  *session.Manager
	Uploader *upload.Uploader
	Config   *config.Config

	// Events is a subscription from Manager.Subscribe. Without it the screen
	// only refreshes after its own actions.
	Events <-chan session.Event

	Theme  *styles.Theme
	Logger *slog.Logger

	// Bell receives the completion sound. Defaults to stderr.
	Bell io.Writer

	// MarkdownStyle is a glamour standard style name or StyleAuto.
	MarkdownStyle string
}

// Model is the Bubble Tea model for the chat screen. It keeps no chat state
// of its own: every render works from a snapshot taken from the manager.
type Model struct {
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Collaborators
	mgr      *session.Manager
	uploader *upload.Uploader
	cfg      *config.Config
	events   <-chan session.Event
	logger   *slog.Logger
	bell     io.Writer

	// Snapshot of the active chat
	chat    session.Chat
	hasChat bool

	// UI Components
	viewport  viewport.Model
	input     textarea.Model
	spinner   spinner.Model
	progress  progress.Model
	help      help.Model
	sidebar   *components.Sidebar
	statusBar *components.StatusBar
	markdown  *markdownRenderer

	// Key bindings
	keyMap KeyMap

	// View toggles
	showSidebar  bool
	showPreamble bool
	showHelp     bool

	// waiting is set when the user asked for a reply in the active chat and
	// cleared when it lands; it drives the completion bell.
	waiting bool

	// Streaming render throttle
	frames *frameLimiter

	// Upload tracking
	uploadCancel  *cancelManager
	uploadCh      <-chan tea.Msg
	uploadPercent float64
}

// New creates a new chat screen.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
		cfg.SetDefaults()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bell := opts.Bell
	if bell == nil {
		bell = os.Stderr
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.RoleStyle(model.RoleAssistant)

	m := Model{
		state:        StateReady,
		theme:        theme,
		mgr:          opts.Manager,
		uploader:     opts.Uploader,
		cfg:          cfg,
		events:       opts.Events,
		logger:       logger,
		bell:         bell,
		viewport:     viewport.New(80, 20),
		input:        ta,
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient()),
		help:         help.New(),
		sidebar:      components.NewSidebar(theme),
		statusBar:    components.NewStatusBar(theme),
		markdown:     newMarkdownRenderer(opts.MarkdownStyle),
		showSidebar:  true,
		showPreamble: cfg.UI.ShowPreamble,
		frames:       newFrameLimiter(defaultMaxFPS),
		uploadCancel: newCancelManager(),
	}
	m.applyKeyMap(cfg.UI.ShiftSend)
	m.statusBar.ModelName = cfg.Chat.Model
	m.statusBar.Backend = cfg.Chat.Backend
	m.refresh()
	if m.hasChat {
		m.input.SetValue(m.chat.Draft)
	}
	return m
}

// applyKeyMap rebuilds the key map and points the textarea's line break
// binding at the key that does not send.
func (m *Model) applyKeyMap(shiftSend bool) {
	m.keyMap = DefaultKeyMap(shiftSend)
	m.input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys(m.keyMap.Newline.Keys()...))
}

// Init starts listening for manager events.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, waitForEvent(m.events)}
	if m.chat.BotTyping {
		cmds = append(cmds, m.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		return m.handleEvent(msg.Event)

	case eventsClosedMsg:
		m.events = nil
		return m, nil

	case StreamTickMsg:
		// terminal events may be dropped when the subscriber falls behind,
		// so ticks resync from the manager for as long as a reply is typing
		if owed := m.frames.tick(msg.Time); owed || m.chat.BotTyping {
			m.refresh()
		}
		if m.chat.BotTyping {
			return m, m.frames.schedule()
		}
		return m, nil

	case SettingsMsg:
		return m.handleSettings(msg)

	case StatusErrorMsg:
		return m.fail(msg.Err)

	case uploadProgressMsg:
		m.uploadPercent = upload.Percent(msg.Sent, msg.Total)
		return m, waitForUpload(m.uploadCh)

	case uploadDoneMsg:
		return m.handleUploadDone(msg)

	case spinner.TickMsg:
		if m.chat.BotTyping || m.state == StateUploading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case bellMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat screen.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight    = 1
	inputAreaHeight = 5 // textarea plus its border
	statusBarHeight = 1
	progressHeight  = 1
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.layout()
	m.refresh()
	return m, nil
}

// sidebarVisible reports whether the chat list is drawn.
func (m *Model) sidebarVisible() bool {
	return m.showSidebar && m.theme.GetLayoutMode() != styles.LayoutNarrow
}

// layout sizes every component from the window size and the view toggles.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	reserved := headerHeight + inputAreaHeight + statusBarHeight
	if m.state == StateUploading {
		reserved += progressHeight
	}
	if m.showHelp {
		m.help.ShowAll = true
		reserved += len(m.keyMap.FullHelp()[0]) + 1
	}

	bodyHeight := m.height - reserved
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	bodyWidth := m.width
	if m.sidebarVisible() {
		bodyWidth -= styles.SidebarWidth
	}
	if bodyWidth < 10 {
		bodyWidth = 10
	}

	m.viewport.Width = bodyWidth
	m.viewport.Height = bodyHeight
	m.sidebar.Height = bodyHeight
	m.input.SetWidth(m.width - 2)
	m.progress.Width = m.width - 4
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// refresh pulls the chat list and the active chat from the manager and
// rebuilds everything derived from them.
func (m *Model) refresh() {
	if m.mgr == nil {
		return
	}
	m.sidebar.SetEntries(m.mgr.List())
	m.chat, m.hasChat = m.mgr.ActiveChat()

	switch {
	case m.uploadCancel.active():
		m.state = StateUploading
	case m.chat.BotTyping:
		m.state = StateStreaming
	default:
		m.state = StateReady
	}
	m.updateStatus()
	m.updateViewport()
}

// updateViewport re-renders the messages, following the bottom when the
// viewport was already close to it.
func (m *Model) updateViewport() {
	follow := ShouldFollow(m.viewport)
	m.viewport.SetContent(m.renderMessages())
	if follow {
		m.viewport.GotoBottom()
	}
}

// GetState returns the current state.
func (m *Model) GetState() State {
	return m.state
}

// ActiveChat returns the snapshot the screen currently shows.
func (m *Model) ActiveChat() (session.Chat, bool) {
	return m.chat, m.hasChat
}

// InputValue returns the text in the input area.
func (m *Model) InputValue() string {
	return m.input.Value()
}

// Close cancels a running upload.
func (m *Model) Close() {
	m.uploadCancel.cancel()
}

// uploadContext starts a cancellable upload context.
func (m *Model) uploadContext() context.Context {
	return m.uploadCancel.start(context.Background())
}
