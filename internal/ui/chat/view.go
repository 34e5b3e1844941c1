// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/ui/components"
	"github.com/kosiew/my-chat-gpt/internal/ui/styles"
	"github.com/kosiew/my-chat-gpt/internal/util"
	"github.com/kosiew/my-chat-gpt/internal/view"
)

// ShouldFollow reports whether new content should scroll vp to the bottom.
func ShouldFollow(vp viewport.Model) bool {
	return view.ShouldAutoscroll(vp.YOffset, vp.Height, vp.TotalLineCount())
}

// =============================================================================
// SCREEN
// =============================================================================

// renderChat lays out header, body, input and status bar.
func (m Model) renderChat() string {
	if m.width == 0 {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), body)
	}

	parts := []string{m.renderHeader(), body, m.renderInput()}
	if m.state == StateUploading {
		parts = append(parts, " "+m.spinner.View()+" "+m.progress.ViewAs(m.uploadPercent))
	}
	parts = append(parts, m.statusBar.View())
	if m.showHelp {
		parts = append(parts, m.help.View(m.keyMap))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("mychat")
	summary := "no chat"
	if m.hasChat {
		summary = util.SingleLine(m.chat.Summary)
	}
	line := title + "  " + util.TruncateWidth(summary, m.width-12)
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderInput() string {
	style := m.theme.Input
	if m.input.Focused() {
		style = m.theme.InputFocus
	}
	return style.Render(m.input.View())
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the visible history of the active chat plus the
// reply being typed.
func (m *Model) renderMessages() string {
	if !m.hasChat {
		return m.theme.EmptyHint.Render("No chats yet. Type a message to start one, or press ctrl+n.")
	}

	width := m.viewport.Width - 2
	var b strings.Builder
	msgs := view.VisibleMessages(m.chat, m.showPreamble)
	for i := range msgs {
		b.WriteString(m.renderMessage(msgs[i], width))
		b.WriteString("\n\n")
	}

	if m.chat.BotTyping && m.chat.BotTypingMessage != nil {
		b.WriteString(m.renderProvisional(*m.chat.BotTypingMessage, width))
	} else if view.IsHistoryEmpty(m.chat) {
		b.WriteString(m.theme.EmptyHint.Render("Say something to get started."))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderMessage(msg model.Message, width int) string {
	label := m.theme.RoleStyle(msg.Role).Render(msg.Role.DisplayName())
	if msg.IsPreamble {
		label += m.theme.Help.Render(" (preamble)")
	}
	if msg.IsImportant {
		label += " " + m.theme.ImportantMark.Render(styles.StatusIndicators.Active)
	}
	return m.theme.MessageStyle(msg.Role).Render(label + "\n" + m.renderContent(msg, width))
}

// renderProvisional renders the partial reply with a spinner while nothing
// has arrived yet and a cursor afterwards.
func (m *Model) renderProvisional(msg model.Message, width int) string {
	label := m.theme.RoleStyle(model.RoleAssistant).Render(model.RoleAssistant.DisplayName())
	content := m.spinner.View() + " thinking..."
	if msg.Content != "" {
		content = m.renderContent(msg, width) + m.theme.Cursor.Render("▌")
	}
	return m.theme.AssistantMessage.Render(label + "\n" + content)
}

// renderContent renders assistant content as Markdown and wraps the rest.
func (m *Model) renderContent(msg model.Message, width int) string {
	if msg.Role == model.RoleAssistant {
		return m.markdown.Render(msg.Content, width)
	}
	return lipgloss.NewStyle().Width(width).Render(msg.Content)
}

// =============================================================================
// STATUS
// =============================================================================

// updateStatus mirrors the screen state into the status bar. Errors and
// notices stay until the next state change.
func (m *Model) updateStatus() {
	switch m.state {
	case StateStreaming:
		if m.statusBar.Status != components.StatusStreaming {
			m.statusBar.SetStatus(components.StatusStreaming)
		}
	case StateUploading:
		if m.statusBar.Status != components.StatusUploading {
			m.statusBar.SetStatus(components.StatusUploading)
		}
	default:
		if m.statusBar.Status == components.StatusStreaming || m.statusBar.Status == components.StatusUploading {
			m.statusBar.SetStatus(components.StatusReady)
		}
	}

	var shortcuts []components.Shortcut
	switch {
	case m.hasChat && view.ShouldShowStopButton(m.chat):
		shortcuts = append(shortcuts, components.Shortcut{Key: "C-s", Desc: "Stop"})
	case m.hasChat && view.ShouldShowGenerateButton(m.chat):
		shortcuts = append(shortcuts, components.Shortcut{Key: "C-g", Desc: view.GenerateLabel(m.chat)})
	}
	shortcuts = append(shortcuts, components.Shortcut{Key: "F1", Desc: "help"})
	m.statusBar.Shortcuts = shortcuts
}
