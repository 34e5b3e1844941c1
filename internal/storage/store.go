// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats to disk.
package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// Store is implemented by FileStore and SQLiteStore.
type Store interface {
	Save(rec model.ChatRecord) error
	Load(id string) (model.ChatRecord, error)
	LoadAll() ([]model.ChatRecord, error)
	Delete(id string) error
	Clear() error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the store named by backend under dataDir.
func Open(backend, dataDir string, logger *slog.Logger) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(filepath.Join(dataDir, "chats"), logger)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "mychat.db"))
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", backend, BackendFile, BackendSQLite)
	}
}

// sortRecords orders records newest chat first.
func sortRecords(recs []model.ChatRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return model.NewerChatID(recs[i].ID, recs[j].ID)
	})
}
