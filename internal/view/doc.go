// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package view computes presentation state from chat snapshots.
//
// Every function is a pure projection of a session.Chat. Front ends call
// them on each render and never cache the results.
package view
