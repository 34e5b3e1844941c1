// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"errors"
	"sort"
	"time"
)

// ChatIDLayout is the time layout of chat identifiers: YYYYMMDDHHMMSS in UTC.
const ChatIDLayout = "20060102150405"

// chatIDLen is the number of digits in a well-formed chat id.
const chatIDLen = len(ChatIDLayout)

// ErrInvalidChatID is returned when an id does not follow ChatIDLayout.
// Such ids remain usable as opaque keys.
var ErrInvalidChatID = errors.New("chat id is not a 14-digit timestamp")

// NewChatID formats t as a chat identifier.
func NewChatID(t time.Time) string {
	return t.UTC().Format(ChatIDLayout)
}

// ParseChatID recovers the creation time encoded in a chat id.
func ParseChatID(id string) (time.Time, error) {
	if !isDigits(id) || len(id) != chatIDLen {
		return time.Time{}, ErrInvalidChatID
	}
	t, err := time.ParseInLocation(ChatIDLayout, id, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidChatID
	}
	return t, nil
}

// IsStale reports whether the chat was created more than days whole days
// before now. Ids that do not parse are never stale.
func IsStale(id string, now time.Time, days int) bool {
	created, err := ParseChatID(id)
	if err != nil {
		return false
	}
	diff := now.UTC().Sub(created)
	return int(diff/(24*time.Hour)) > days
}

// NewerChatID reports whether a sorts before b in newest-first order.
//
// Numeric ids compare by value, so "20240301120000" is newer than
// "20240115093000". Numeric ids come before non-numeric ones, which fall back
// to a plain string comparison.
func NewerChatID(a, b string) bool {
	an, bn := isDigits(a), isDigits(b)
	switch {
	case an && bn:
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a > b
	case an:
		return true
	case bn:
		return false
	default:
		return a < b
	}
}

// SortChatIDs orders ids newest first in place.
func SortChatIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return NewerChatID(ids[i], ids[j])
	})
}

// isDigits reports whether s is non-empty and made only of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
