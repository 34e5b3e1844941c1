// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosiew/my-chat-gpt/internal/model"
)

// =============================================================================
// SHARED BACKEND TESTS
// =============================================================================

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := NewFileStore(filepath.Join(dir, "chats"), nil)
	require.NoError(t, err)
	db, err := NewSQLiteStore(filepath.Join(dir, "mychat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Store{"file": fs, "sqlite": db}
}

func sampleRecord(id string) model.ChatRecord {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.ChatRecord{
		ID:      id,
		Summary: "Go questions",
		Draft:   "half typed",
		Messages: []model.Message{
			{ID: "m-pre", Role: model.RoleSystem, Content: "be brief", IsPreamble: true, Timestamp: ts},
			{ID: "m-z", Role: model.RoleUser, Content: "hi", Timestamp: ts.Add(time.Second)},
			{ID: "m-a", Role: model.RoleAssistant, Content: "hello\nthere", IsImportant: true, Timestamp: ts.Add(2 * time.Second)},
		},
		UpdatedAt: ts,
	}
}

func assertSameRecord(t *testing.T, want, got model.ChatRecord) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Summary, got.Summary)
	assert.Equal(t, want.Draft, got.Draft)
	require.Len(t, got.Messages, len(want.Messages))
	for i := range want.Messages {
		w, g := want.Messages[i], got.Messages[i]
		assert.Equal(t, w.ID, g.ID, "message %d id", i)
		assert.Equal(t, w.Role, g.Role)
		assert.Equal(t, w.Content, g.Content)
		assert.Equal(t, w.IsPreamble, g.IsPreamble)
		assert.Equal(t, w.IsImportant, g.IsImportant)
		assert.True(t, w.Timestamp.Equal(g.Timestamp), "timestamp %v != %v", w.Timestamp, g.Timestamp)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := sampleRecord("20240301120000")
			require.NoError(t, store.Save(rec))

			got, err := store.Load(rec.ID)
			require.NoError(t, err)
			assertSameRecord(t, rec, got)
		})
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := sampleRecord("20240301120000")
			require.NoError(t, store.Save(rec))

			rec.Summary = "renamed"
			rec.Messages = rec.Messages[:2]
			require.NoError(t, store.Save(rec))

			got, err := store.Load(rec.ID)
			require.NoError(t, err)
			assertSameRecord(t, rec, got)
		})
	}
}

func TestStore_LoadAllNewestFirst(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"20240115093000", "scratch", "20240301120000"} {
				require.NoError(t, store.Save(sampleRecord(id)))
			}

			recs, err := store.LoadAll()
			require.NoError(t, err)
			var ids []string
			for _, r := range recs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, []string{"20240301120000", "20240115093000", "scratch"}, ids)
		})
	}
}

func TestStore_EmptyHistory(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(model.ChatRecord{ID: "20240301120000", Summary: model.DefaultSummary}))

			got, err := store.Load("20240301120000")
			require.NoError(t, err)
			assert.Empty(t, got.Messages)
		})
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(sampleRecord("a1")))
			require.NoError(t, store.Save(sampleRecord("a2")))

			require.NoError(t, store.Delete("a1"))
			_, err := store.Load("a1")
			assert.ErrorIs(t, err, ErrChatNotFound)
			assert.ErrorIs(t, store.Delete("a1"), ErrChatNotFound)

			require.NoError(t, store.Clear())
			recs, err := store.LoadAll()
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.ErrorIs(t, store.Save(model.ChatRecord{ID: id}), ErrInvalidID, "id %q", id)
	}
}

func TestFileStore_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(sampleRecord("20240301120000")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	recs, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "20240301120000", recs[0].ID)

	require.NoError(t, store.Clear())
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err, "clear only removes chat files")
}

// =============================================================================
// OPEN TESTS
// =============================================================================

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	fs, err := Open(BackendFile, dir, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fs)

	db, err := Open(BackendSQLite, dir, nil)
	require.NoError(t, err)
	defer db.Close()
	assert.IsType(t, &SQLiteStore{}, db)
	assert.FileExists(t, filepath.Join(dir, "mychat.db"))

	_, err = Open("redis", dir, nil)
	assert.Error(t, err)
}
