// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat launcher.
//
// Builds the App, subscribes the chat screen to manager events and reloads
// settings while the program runs when the config file changes.

package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kosiew/my-chat-gpt/internal/config"
	"github.com/kosiew/my-chat-gpt/internal/ui/chat"
)

// runTUI runs the chat screen until the user quits.
func runTUI(ctx context.Context, opts Options) error {
	app, err := OpenApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	events, unsubscribe := app.Manager.Subscribe()
	defer unsubscribe()

	screen := chat.New(chat.Options{
		Manager:  app.Manager,
		Uploader: app.Uploader,
		Config:   app.Config,
		Events:   events,
		Logger:   app.Logger,
	})
	defer screen.Close()

	p := tea.NewProgram(screen, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if app.ConfigPath != "" {
		watcher, err := config.NewWatcher(app.ConfigPath, app.Logger)
		if err != nil {
			// the directory may not exist before `config init`
			app.Logger.Debug("config reload disabled", "path", app.ConfigPath, "error", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx, func(cfg *config.Config) {
				p.Send(chat.SettingsMsg{Config: cfg})
			})
		}
	}

	go func() {
		if err := app.CheckBackend(ctx); err != nil {
			p.Send(chat.StatusErrorMsg{Err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
