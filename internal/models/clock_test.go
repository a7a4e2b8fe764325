// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

import (
	"testing"
	"time"
)

// TestClockEstimate_RemoteNowMs verifies offset projection
func TestClockEstimate_RemoteNowMs(t *testing.T) {
	now := time.UnixMilli(1_000_000)

	est := ClockEstimate{OffsetMs: 250}
	if got := est.RemoteNowMs(now); got != 1_000_250 {
		t.Errorf("RemoteNowMs() = %d, want 1000250", got)
	}

	est = ClockEstimate{OffsetMs: -1000}
	if got := est.RemoteNowMs(now); got != 999_000 {
		t.Errorf("RemoteNowMs() with negative offset = %d, want 999000", got)
	}
}

// TestPlaybackCursor_Project verifies wall clock projection from the anchor
func TestPlaybackCursor_Project(t *testing.T) {
	anchor := time.UnixMilli(5_000)
	cursor := PlaybackCursor{MediaTimeMs: 30_000, AnchoredAt: anchor}

	if got := cursor.Project(anchor); got != 30_000 {
		t.Errorf("Project at anchor = %d, want 30000", got)
	}
	if got := cursor.Project(anchor.Add(1500 * time.Millisecond)); got != 31_500 {
		t.Errorf("Project 1.5s later = %d, want 31500", got)
	}
}
