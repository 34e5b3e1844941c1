// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats to disk.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kosiew/my-chat-gpt/internal/model"
	"github.com/kosiew/my-chat-gpt/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps one JSON document per chat in a directory.
type FileStore struct {
	// Dir holds <id>.json files. Default: <data dir>/chats
	Dir string

	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create chat directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{Dir: dir, logger: logger}, nil
}

// Save writes the chat atomically, replacing any previous version.
func (s *FileStore) Save(rec model.ChatRecord) error {
	path, err := s.filePath(rec.ID)
	if err != nil {
		return err
	}
	if rec.Messages == nil {
		rec.Messages = []model.Message{}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return util.AtomicWriteFile(path, data, 0644, 0755)
}

// Load reads one chat.
func (s *FileStore) Load(id string) (model.ChatRecord, error) {
	path, err := s.filePath(id)
	if err != nil {
		return model.ChatRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return readRecord(path, id)
}

func readRecord(path, id string) (model.ChatRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.ChatRecord{}, notFound(id)
		}
		return model.ChatRecord{}, err
	}

	var rec model.ChatRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.ChatRecord{}, fmt.Errorf("decode chat %s: %w", id, err)
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return rec, nil
}

// LoadAll reads every chat, newest first. Corrupted files are skipped
// with a warning.
func (s *FileStore) LoadAll() ([]model.ChatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	recs := make([]model.ChatRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		rec, err := readRecord(filepath.Join(s.Dir, entry.Name()), id)
		if err != nil {
			s.logger.Warn("skipping chat file", "file", entry.Name(), "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	sortRecords(recs)
	return recs, nil
}

// Delete removes one chat.
func (s *FileStore) Delete(id string) error {
	path, err := s.filePath(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(id)
		}
		return err
	}
	return nil
}

// Clear removes every chat file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close is a no-op; it exists so FileStore and SQLiteStore are interchangeable.
func (s *FileStore) Close() error {
	return nil
}

// filePath maps a chat id to its file, rejecting ids that would escape Dir.
func (s *FileStore) filePath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", invalidID(id)
	}
	return filepath.Join(s.Dir, id+".json"), nil
}
