// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mychat.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher watches path for changes. The parent directory is watched so
// editors that replace the file by rename are picked up.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		debounce: 100 * time.Millisecond,
		logger:   logger,
	}, nil
}

// Run delivers each successfully reloaded configuration to onChange until ctx
// is done. Invalid files are logged and skipped; the previous configuration
// stays in effect.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := LoadFromPath(w.path)
			if err != nil {
				w.logger.Warn("config reload failed", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			onChange(cfg)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
