// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storage and config layers.
package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.json")
	data := []byte(`{"id":"20240301120000"}`)

	if err := AtomicWriteFile(path, data, 0644, 0755); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", content, data)
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats", "deep", "chat.json")

	if err := AtomicWriteFile(path, []byte("x"), 0644, 0700); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_OverwritesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.json")

	if err := AtomicWriteFile(path, []byte("initial"), 0644, 0755); err != nil {
		t.Fatalf("First write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("updated"), 0600, 0755); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "updated" {
		t.Errorf("Content = %q, want updated", content)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}

	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0600 {
			t.Errorf("Mode = %v, want 0600", info.Mode().Perm())
		}
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "New chat", 10, "New chat"},
		{"ascii", "Go questions about channels", 10, "Go ques..."},
		{"wide", "日本語のチャット", 9, "日本語..."},
		{"tiny", "hello", 2, "he"},
		{"zero", "hello", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.input, tc.width)
			if got != tc.want {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.width, got, tc.want)
			}
			if runewidth.StringWidth(got) > tc.width {
				t.Errorf("result %q is wider than %d", got, tc.width)
			}
		})
	}
}

func TestPadWidth(t *testing.T) {
	if got := PadWidth("ab", 5); got != "ab   " {
		t.Errorf("PadWidth = %q, want %q", got, "ab   ")
	}
	if got := PadWidth("日本", 5); runewidth.StringWidth(got) != 5 {
		t.Errorf("PadWidth(日本) width = %d, want 5", runewidth.StringWidth(got))
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("a\r\nb\nc"); got != "a b c" {
		t.Errorf("SingleLine = %q, want %q", got, "a b c")
	}
}
