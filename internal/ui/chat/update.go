// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
package chat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/ui/components"
	"github.com/kosiew/my-chat-gpt/internal/upload"
	"github.com/kosiew/my-chat-gpt/internal/view"
)

// errNoChat is shown when an action needs an active chat and there is none.
var errNoChat = errors.New("no active chat, press ctrl+n to start one")

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Send):
		return m.submit()

	case key.Matches(msg, m.keyMap.Generate):
		return m.generate()

	case key.Matches(msg, m.keyMap.Stop):
		return m.stop()

	case key.Matches(msg, m.keyMap.NewChat):
		return m.newChat()

	case key.Matches(msg, m.keyMap.DeleteChat):
		return m.deleteChat()

	case key.Matches(msg, m.keyMap.NextChat):
		return m.switchChat(m.sidebar.Next(1))

	case key.Matches(msg, m.keyMap.PrevChat):
		return m.switchChat(m.sidebar.Next(-1))

	case key.Matches(msg, m.keyMap.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		m.layout()
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.TogglePreamble):
		m.showPreamble = !m.showPreamble
		m.updateViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.saveDraft(after)
	}
	return m, cmd
}

// saveDraft stores the input text as the active chat's draft.
func (m *Model) saveDraft(text string) {
	if m.mgr == nil || !m.hasChat {
		return
	}
	if err := m.mgr.UpdateDraft(m.chat.ID, text); err != nil {
		m.logger.Warn("save draft", "chat_id", m.chat.ID, "error", err)
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit sends the input text. Lines starting with a slash are commands.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}
	if !m.hasChat {
		id, err := m.mgr.CreateChat(m.cfg.Chat.Preamble)
		if err != nil {
			return m.fail(err)
		}
		m.chat.ID = id
		m.hasChat = true
	}
	if m.chat.BotTyping {
		m.statusBar.SetNotice("a reply is still being typed, stop it first")
		return m, nil
	}

	id := m.chat.ID
	if _, err := m.mgr.Submit(id, text, model.RoleUser); err != nil {
		return m.fail(err)
	}
	m.input.Reset()
	m.viewport.GotoBottom()
	if _, err := m.mgr.RequestCompletion(id); err != nil {
		return m.fail(err)
	}
	m.waiting = true
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.frames.schedule())
}

// generate requests a reply, replacing the last one when it is the
// assistant's.
func (m Model) generate() (tea.Model, tea.Cmd) {
	if !m.hasChat {
		return m.fail(errNoChat)
	}
	if !view.ShouldShowGenerateButton(m.chat) {
		return m, nil
	}

	var err error
	if view.ShouldShowRegenerateLabel(m.chat) {
		_, err = m.mgr.Regenerate(m.chat.ID)
	} else {
		_, err = m.mgr.RequestCompletion(m.chat.ID)
	}
	if err != nil {
		return m.fail(err)
	}
	m.waiting = true
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.frames.schedule())
}

// stop cancels a running upload, or else the active chat's reply.
func (m Model) stop() (tea.Model, tea.Cmd) {
	if m.uploadCancel.cancel() {
		m.statusBar.SetNotice("upload cancelled")
		return m, nil
	}
	if !m.hasChat || !m.chat.BotTyping {
		return m, nil
	}
	if err := m.mgr.Abort(m.chat.ID); err != nil {
		return m.fail(err)
	}
	m.waiting = false
	m.refresh()
	return m, nil
}

func (m Model) newChat() (tea.Model, tea.Cmd) {
	if _, err := m.mgr.CreateChat(m.cfg.Chat.Preamble); err != nil {
		return m.fail(err)
	}
	m.waiting = false
	m.refresh()
	m.input.Reset()
	m.viewport.GotoTop()
	return m, nil
}

// deleteChat removes the active chat and moves to the next newest one.
func (m Model) deleteChat() (tea.Model, tea.Cmd) {
	if !m.hasChat {
		return m, nil
	}
	next := m.sidebar.Next(1)
	if err := m.mgr.DeleteChat(m.chat.ID); err != nil {
		return m.fail(err)
	}
	m.waiting = false
	if next != "" && next != m.chat.ID {
		return m.switchChat(next)
	}
	m.refresh()
	m.input.Reset()
	return m, nil
}

// switchChat activates another chat and restores its draft.
func (m Model) switchChat(id string) (tea.Model, tea.Cmd) {
	if id == "" || (m.hasChat && id == m.chat.ID) {
		return m, nil
	}
	if err := m.mgr.SwitchChat(id); err != nil {
		return m.fail(err)
	}
	m.waiting = false
	m.refresh()
	m.input.SetValue(m.chat.Draft)
	m.viewport.GotoBottom()
	var cmd tea.Cmd
	if m.chat.BotTyping {
		cmd = tea.Batch(m.spinner.Tick, m.frames.schedule())
	}
	return m, cmd
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.logger.Warn("chat action failed", "error", err)
	m.statusBar.SetError(err)
	return m, nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand handles the commands typed into the input area.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name, arg := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	m.input.Reset()
	m.saveDraft("")

	if name != "/new" && !m.hasChat {
		return m.fail(errNoChat)
	}

	switch name {
	case "/new":
		return m.newChat()

	case "/summary":
		if arg == "" {
			return m.fail(errors.New("usage: /summary <text>"))
		}
		if err := m.mgr.EditSummary(m.chat.ID, arg); err != nil {
			return m.fail(err)
		}

	case "/system":
		if arg == "" {
			return m.fail(errors.New("usage: /system <text>"))
		}
		if _, err := m.mgr.Submit(m.chat.ID, arg, model.RoleSystem); err != nil {
			return m.fail(err)
		}

	case "/star", "/rm":
		last, ok := m.chat.History.LastNonPreamble()
		if !ok {
			return m.fail(errors.New("no message to change"))
		}
		var err error
		if name == "/star" {
			err = m.mgr.SetImportant(m.chat.ID, last.ID, !last.IsImportant)
		} else {
			err = m.mgr.DeleteMessage(m.chat.ID, last.ID)
		}
		if err != nil {
			return m.fail(err)
		}

	case "/upload":
		return m.startUpload(arg)

	default:
		return m.fail(fmt.Errorf("unknown command %s", name))
	}

	m.statusBar.SetStatus(components.StatusReady)
	m.refresh()
	return m, nil
}

// =============================================================================
// UPLOAD
// =============================================================================

// startUpload reads a file and submits it in parts from a goroutine,
// reporting progress through uploadCh.
func (m Model) startUpload(path string) (tea.Model, tea.Cmd) {
	if path == "" {
		return m.fail(errors.New("usage: /upload <path>"))
	}
	if m.uploader == nil {
		return m.fail(errors.New("uploads are not available"))
	}
	if m.uploadCancel.active() {
		return m.fail(errors.New("an upload is already running"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return m.fail(err)
	}

	ctx := m.uploadContext()
	ch := make(chan tea.Msg, 16)
	chatID, name, uploader, cancels := m.chat.ID, filepath.Base(path), m.uploader, m.uploadCancel
	go func() {
		defer close(ch)
		n, err := uploader.Upload(ctx, chatID, name, string(data), func(sent, total int) {
			select {
			case ch <- uploadProgressMsg{Sent: sent, Total: total}:
			default:
			}
		})
		cancels.cancel()
		ch <- uploadDoneMsg{Filename: name, Parts: n, Err: err}
	}()

	m.uploadCh = ch
	m.uploadPercent = 0
	m.state = StateUploading
	m.statusBar.SetStatus(components.StatusUploading)
	m.layout()
	return m, tea.Batch(waitForUpload(ch), m.spinner.Tick)
}

func (m Model) handleUploadDone(msg uploadDoneMsg) (tea.Model, tea.Cmd) {
	m.uploadCh = nil
	m.uploadPercent = 0
	m.refresh()
	m.layout()
	if msg.Err != nil {
		if errors.Is(msg.Err, upload.ErrEmptyFile) {
			msg.Err = fmt.Errorf("%s is empty", msg.Filename)
		}
		return m.fail(msg.Err)
	}
	m.statusBar.SetNotice(fmt.Sprintf("uploaded %s in %d parts", msg.Filename, msg.Parts))
	return m, nil
}

// =============================================================================
// MANAGER EVENTS
// =============================================================================

// handleEvent applies a manager event and keeps listening.
func (m Model) handleEvent(ev session.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{waitForEvent(m.events)}
	active := ev.ChatID == "" || (m.hasChat && ev.ChatID == m.chat.ID)

	switch ev.Kind {
	case session.EventFragment:
		if !active {
			return m, tea.Batch(cmds...)
		}
		if m.frames.allow(time.Now()) {
			m.refresh()
		} else {
			cmds = append(cmds, m.frames.schedule())
		}
		return m, tea.Batch(cmds...)

	case session.EventStarted:
		m.refresh()
		if active {
			cmds = append(cmds, m.spinner.Tick)
		}

	case session.EventCompleted:
		m.refresh()
		if active && view.IsCompletedResponse(m.chat, m.waiting) {
			m.waiting = false
			if !m.cfg.UI.MuteSound {
				cmds = append(cmds, m.ringBell())
			}
		}

	case session.EventErrored:
		m.refresh()
		if active {
			m.waiting = false
			m.statusBar.SetError(ev.Err)
		}

	case session.EventAborted:
		m.refresh()
		if active {
			m.waiting = false
			m.statusBar.SetNotice("reply stopped")
		}

	default:
		wasChat := m.chat.ID
		m.refresh()
		if m.hasChat && m.chat.ID != wasChat {
			m.input.SetValue(m.chat.Draft)
		}
	}
	return m, tea.Batch(cmds...)
}

// ringBell writes the terminal bell.
func (m Model) ringBell() tea.Cmd {
	w := m.bell
	return func() tea.Msg {
		fmt.Fprint(w, "\a")
		return bellMsg{}
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m Model) handleSettings(msg SettingsMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	m.cfg = msg.Config
	m.applyKeyMap(m.cfg.UI.ShiftSend)
	m.showPreamble = m.cfg.UI.ShowPreamble
	m.statusBar.ModelName = m.cfg.Chat.Model
	m.statusBar.Backend = m.cfg.Chat.Backend
	m.updateViewport()
	m.statusBar.SetNotice("settings reloaded")
	return m, nil
}
