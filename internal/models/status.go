// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

// SyncStatus is the observable device status exposed to the media player
// for UI rendering. Message carries short user-visible strings such as
// "Offline", "Sync Failed" or "Upload Failed" - never raw protocol payloads.
type SyncStatus struct {
	Connected bool   `json:"connected"`
	Syncing   bool   `json:"syncing"` // a script is loaded and ready to drive motion
	Message   string `json:"message"`

	// Script metadata for UI display; zero values when no script is loaded.
	ScriptActions    int   `json:"script_actions,omitempty"`
	ScriptDurationMs int64 `json:"script_duration_ms,omitempty"`
}
