// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// This file holds the cancel function of a running upload.
package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL MANAGER
// =============================================================================

// cancelManager guards the cancel function of the running upload. It must be
// used as a pointer in Model so Bubble Tea's value copies share it.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func newCancelManager() *cancelManager {
	return &cancelManager{}
}

// start derives a cancellable context and stores its cancel function,
// cancelling any previous one.
func (cm *cancelManager) start(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
	}
	cm.cancelFunc = cancel
	return ctx
}

// cancel invokes the stored cancel function and clears it. It reports
// whether there was anything to cancel.
func (cm *cancelManager) cancel() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc == nil {
		return false
	}
	cm.cancelFunc()
	cm.cancelFunc = nil
	return true
}

// active reports whether a cancel function is stored.
func (cm *cancelManager) active() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.cancelFunc != nil
}
