// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for mychat CLI.
//
// Handles the "mychat chat" command which provides a line-oriented REPL over
// the same chats the TUI shows.
//
// Interactive Commands (during chat):
//   /help, /h            Show available commands
//   /new                 Start a new chat
//   /list, /ls           List chats, newest first
//   /search <text>       List chats whose summary or messages match
//   /switch <id>         Make a chat active
//   /delete <id>         Delete a chat
//   /clear               Delete every chat (asks first)
//   /summary <text>      Rename the active chat
//   /gen                 Generate, or regenerate the last reply
//   /stop                Stop the current reply
//   /history             Show the active chat's messages
//   /edit <id> <text>    Replace a message's content
//   /rm <id>             Delete a message
//   /star <id>           Toggle a message's important flag
//   /upload <path>       Submit a file in parts
//   /role <role>         Send further input as user, assistant or system
//   /quit, /q            Exit chat
//   Ctrl+C               Cancel current generation
//   Ctrl+D               Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/session"
	"github.com/kosiew/my-chat-gpt/internal/upload"
	"github.com/kosiew/my-chat-gpt/internal/util"
	"github.com/kosiew/my-chat-gpt/internal/view"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	roleStyles = map[model.Role]lipgloss.Style{
		model.RoleUser:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		model.RoleAssistant: lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true),
		model.RoleSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	}
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history lives in dataDir.
func NewChatCLI(dataDir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dataDir, "chat_history"),
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		c.line.WriteHistory(f)
		f.Close()
	}
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// REPL runs chat commands against an App.
type REPL struct {
	app  *App
	out  io.Writer
	role model.Role

	// confirm asks before destructive commands
	confirm func(action string) bool

	// markdown renders assistant replies in /history when colors are on
	markdown bool
}

// NewREPL creates a REPL writing to out. Destructive commands are refused
// until a confirm function is installed by Run.
func NewREPL(app *App, out io.Writer) *REPL {
	return &REPL{
		app:      app,
		out:      out,
		role:     model.RoleUser,
		confirm:  func(string) bool { return false },
		markdown: ColorsEnabled(),
	}
}

// Run reads input until /quit, Ctrl+D or Ctrl+C at the prompt.
func (r *REPL) Run(ctx context.Context) error {
	input := NewChatCLI(r.app.DataDir)
	defer input.Close()

	r.confirm = func(action string) bool {
		answer, err := input.line.Prompt(fmt.Sprintf("Are you sure you want to %s? [y/N]: ", action))
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}

	if _, err := r.app.EnsureActiveChat(); err != nil {
		return err
	}
	fmt.Fprintln(r.out, welcomeStyle.Render("mychat")+" "+DimStyle.Render("type /help for commands"))

	for {
		line, err := input.ReadInput(promptStyle.Render(r.prompt()))
		if err != nil {
			// liner.ErrPromptAborted, io.EOF or a closed terminal all end the session
			fmt.Fprintln(r.out)
			return nil
		}
		quit, err := r.Execute(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
		if quit {
			return nil
		}
	}
}

func (r *REPL) prompt() string {
	if r.role != model.RoleUser {
		return r.role.String() + "> "
	}
	return "mychat> "
}

// Execute handles one line of input. It reports whether the REPL should exit.
func (r *REPL) Execute(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if strings.HasPrefix(line, "/") {
		return r.handleSlashCommand(ctx, line)
	}
	if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
		return true, nil
	}
	return false, r.send(ctx, line)
}

// send submits text to the active chat and streams the reply.
func (r *REPL) send(ctx context.Context, text string) error {
	id, err := r.app.EnsureActiveChat()
	if err != nil {
		return err
	}
	if _, err := r.app.Manager.Submit(id, text, r.role); err != nil {
		return err
	}
	if r.role != model.RoleUser {
		// assistant and system messages are context only
		return nil
	}
	return r.complete(ctx, id, false)
}

// complete requests a completion and prints fragments as they arrive.
// Ctrl+C while streaming aborts the reply.
func (r *REPL) complete(ctx context.Context, id string, regenerate bool) error {
	events, unsubscribe := r.app.Manager.Subscribe()
	defer unsubscribe()

	var sid string
	var err error
	if regenerate {
		sid, err = r.app.Manager.Regenerate(id)
	} else {
		sid, err = r.app.Manager.RequestCompletion(id)
	}
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	fmt.Fprintln(r.out)
	for {
		select {
		case <-ctx.Done():
			_ = r.app.Manager.Abort(id)
			return ctx.Err()

		case <-interrupt:
			_ = r.app.Manager.Abort(id)

		case ev, ok := <-events:
			if !ok {
				return errors.New("chat manager closed")
			}
			if ev.SessionID != sid {
				continue
			}
			switch ev.Kind {
			case session.EventFragment:
				fmt.Fprint(r.out, ev.Fragment)
			case session.EventCompleted:
				fmt.Fprint(r.out, "\n\n")
				return nil
			case session.EventAborted:
				fmt.Fprintln(r.out, "\n"+WarningStyle.Render("[Cancelled]"))
				return nil
			case session.EventErrored:
				fmt.Fprintln(r.out)
				return ev.Err
			}
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (r *REPL) handleSlashCommand(ctx context.Context, line string) (bool, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	m := r.app.Manager

	switch strings.ToLower(cmd) {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h":
		r.printHelp()

	case "/new":
		id, err := m.CreateChat(r.app.Config.Chat.Preamble)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Started chat %s\n", id)

	case "/list", "/ls":
		printEntries(r.out, m.List())

	case "/search":
		if rest == "" {
			return false, ErrMissingArgument("text", "/search <text>")
		}
		printEntries(r.out, m.Search(rest))

	case "/switch":
		if rest == "" {
			return false, ErrMissingArgument("chat id", "/switch <id>")
		}
		if err := m.SwitchChat(rest); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Switched to chat %s\n", rest)

	case "/delete":
		if rest == "" {
			return false, ErrMissingArgument("chat id", "/delete <id>")
		}
		if err := m.DeleteChat(rest); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Deleted chat %s\n", rest)

	case "/clear":
		if !r.confirm("delete all chats") {
			fmt.Fprintln(r.out, DimStyle.Render("Cancelled."))
			return false, nil
		}
		m.ClearAllChats()
		fmt.Fprintln(r.out, "All chats deleted.")

	case "/summary":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		if rest == "" {
			return false, ErrMissingArgument("summary", "/summary <text>")
		}
		return false, m.EditSummary(id, rest)

	case "/gen":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		chat, err := m.Chat(id)
		if err != nil {
			return false, err
		}
		if view.ShouldShowStopButton(chat) {
			return false, model.SessionActive("cli.gen", id)
		}
		return false, r.complete(ctx, id, view.ShouldShowRegenerateLabel(chat))

	case "/stop":
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		return false, m.Abort(id)

	case "/history":
		return false, r.printHistory()

	case "/edit":
		msgID, text, _ := strings.Cut(rest, " ")
		if msgID == "" || strings.TrimSpace(text) == "" {
			return false, ErrMissingArgument("message id and text", "/edit <msg-id> <text>")
		}
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		return false, m.EditMessage(id, msgID, strings.TrimSpace(text))

	case "/rm":
		if rest == "" {
			return false, ErrMissingArgument("message id", "/rm <msg-id>")
		}
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		return false, m.DeleteMessage(id, rest)

	case "/star":
		if rest == "" {
			return false, ErrMissingArgument("message id", "/star <msg-id>")
		}
		id, err := r.activeID()
		if err != nil {
			return false, err
		}
		chat, err := m.Chat(id)
		if err != nil {
			return false, err
		}
		msg, ok := chat.History.Get(rest)
		if !ok {
			return false, model.NotFound("cli.star", rest)
		}
		return false, m.SetImportant(id, rest, !msg.IsImportant)

	case "/upload":
		if rest == "" {
			return false, ErrMissingArgument("path", "/upload <path>")
		}
		return false, r.upload(ctx, rest)

	case "/role":
		role, ok := model.ParseRole(rest)
		if !ok {
			return false, ErrInvalidFormat("role", rest, "user, assistant or system")
		}
		r.role = role
		fmt.Fprintf(r.out, "Sending as %s\n", role.DisplayName())

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return false, nil
}

func (r *REPL) activeID() (string, error) {
	id, ok := r.app.Manager.Active()
	if !ok {
		return "", errors.New("no active chat (use /new or /switch)")
	}
	return id, nil
}

func (r *REPL) upload(ctx context.Context, path string) error {
	id, err := r.activeID()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parts, err := r.app.Uploader.Upload(ctx, id, filepath.Base(path), string(data), func(sent, total int) {
		fmt.Fprintf(r.out, "\rUploading %s: %3.0f%%", filepath.Base(path), upload.Percent(sent, total))
	})
	fmt.Fprintln(r.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Uploaded %d parts. Use /gen to ask for a reply.\n", parts)
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, SectionStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/new", "Start a new chat"},
		{"/list", "List chats, newest first"},
		{"/search <text>", "Find chats by summary or content"},
		{"/switch <id>", "Make a chat active"},
		{"/delete <id>", "Delete a chat"},
		{"/clear", "Delete every chat"},
		{"/summary <text>", "Rename the active chat"},
		{"/gen", "Generate or regenerate a reply"},
		{"/stop", "Stop the current reply"},
		{"/history", "Show the active chat"},
		{"/edit <id> <text>", "Replace a message"},
		{"/rm <id>", "Delete a message"},
		{"/star <id>", "Toggle a message's important flag"},
		{"/upload <path>", "Submit a file in parts"},
		{"/role <role>", "Send as user, assistant or system"},
		{"/quit", "Exit"},
	} {
		fmt.Fprintf(r.out, "  %s%s\n", column(row[0], 20), row[1])
	}
}

// printEntries writes one line per chat, marking the active one.
func printEntries(w io.Writer, entries []session.ListEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No chats."))
		return
	}
	for _, e := range entries {
		marker := " "
		if e.Active {
			marker = "*"
		}
		typing := ""
		if e.BotTyping {
			typing = " " + WarningStyle.Render("[typing]")
		}
		fmt.Fprintf(w, "%s %s  %s %s%s\n",
			marker, e.ID,
			util.PadWidth(util.TruncateWidth(util.SingleLine(e.Summary), 40), 40),
			DimStyle.Render(fmt.Sprintf("(%d messages)", e.Messages)),
			typing)
	}
}

func (r *REPL) printHistory() error {
	chat, ok := r.app.Manager.ActiveChat()
	if !ok {
		return errors.New("no active chat (use /new or /switch)")
	}
	fmt.Fprintln(r.out, TitleStyle.Render(chat.Summary))

	for _, msg := range view.VisibleMessages(chat, r.app.Config.UI.ShowPreamble) {
		star := ""
		if msg.IsImportant {
			star = " " + HighlightStyle.Render("*")
		}
		header := roleStyles[msg.Role].Render(msg.Role.DisplayName())
		fmt.Fprintf(r.out, "%s %s%s\n", header, DimStyle.Render(msg.ID), star)
		fmt.Fprintln(r.out, r.renderContent(msg))
	}
	return nil
}

func (r *REPL) renderContent(msg model.Message) string {
	if !r.markdown || msg.Role != model.RoleAssistant {
		return msg.Content + "\n"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth()),
	)
	if err != nil {
		return msg.Content + "\n"
	}
	out, err := renderer.Render(msg.Content)
	if err != nil {
		return msg.Content + "\n"
	}
	return out
}
