// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"user", RoleUser, true},
		{"User", RoleUser, true},
		{"assistant", RoleAssistant, true},
		{"bot", RoleAssistant, true},
		{"system", RoleSystem, true},
		{"preamble", RoleSystem, true},
		{"tool", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseRole(tc.input)
			if got != tc.want || ok != tc.ok {
				t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("tool should not be a valid role")
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	a := NewUserMessage("hi")
	b := NewUserMessage("hi")

	if a.ID == b.ID {
		t.Error("message ids should be unique")
	}
	if !strings.HasPrefix(a.ID, "msg_") {
		t.Errorf("message id %q should start with msg_", a.ID)
	}
	if a.Role != RoleUser || a.IsPreamble || a.IsImportant {
		t.Errorf("unexpected user message %+v", a)
	}

	p := NewPreamble("be helpful")
	if p.Role != RoleSystem || !p.IsPreamble {
		t.Errorf("preamble should be a system message flagged as preamble, got %+v", p)
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"short", "hello", 10, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"unicode", "héllo wörld", 8, "héllo..."},
		{"tiny limit", "hello", 2, "he"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Message{Content: tc.content}.Preview(tc.maxLen)
			if got != tc.want {
				t.Errorf("Preview(%d) = %q, want %q", tc.maxLen, got, tc.want)
			}
		})
	}
}

// =============================================================================
// CHAT ID TESTS
// =============================================================================

func TestNewChatID(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	ts := time.Date(2024, 3, 1, 20, 0, 0, 0, loc)

	if got := NewChatID(ts); got != "20240301120000" {
		t.Errorf("NewChatID = %q, want 20240301120000", got)
	}

	parsed, err := ParseChatID("20240301120000")
	if err != nil {
		t.Fatalf("ParseChatID: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("ParseChatID = %v, want %v", parsed, ts)
	}
}

func TestParseChatID_Invalid(t *testing.T) {
	for _, id := range []string{"", "abc", "2024030112000", "202403011200000", "20241301120000"} {
		if _, err := ParseChatID(id); !errors.Is(err, ErrInvalidChatID) {
			t.Errorf("ParseChatID(%q) err = %v, want ErrInvalidChatID", id, err)
		}
	}
}

func TestSortChatIDs(t *testing.T) {
	ids := []string{"20240115093000", "scratch", "20240301120000", "20231231235959"}
	SortChatIDs(ids)

	want := []string{"20240301120000", "20240115093000", "20231231235959", "scratch"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("SortChatIDs = %v, want %v", ids, want)
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"exactly thirty days", "20240301120000", false},
		{"thirty days and change", "20240301115959", false},
		{"thirty one days", "20240229120000", true},
		{"fresh", "20240331110000", false},
		{"opaque id", "scratch", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsStale(tc.id, now, 30); got != tc.want {
				t.Errorf("IsStale(%q) = %v, want %v", tc.id, got, tc.want)
			}
		})
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("history.delete", "msg_1"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound error should match ErrNotFound")
	}
	if errors.Is(err, ErrDuplicateID) {
		t.Error("NotFound error should not match ErrDuplicateID")
	}
	if !strings.Contains(err.Error(), "msg_1") {
		t.Errorf("error text %q should name the id", err.Error())
	}
}

func TestError_UpstreamUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Upstream("stream", "20240301120000", cause)

	if !errors.Is(err, ErrUpstream) {
		t.Error("should match ErrUpstream")
	}
	if !errors.Is(err, cause) {
		t.Error("should unwrap to the cause")
	}
}
