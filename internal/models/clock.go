// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

import "time"

// ClockEstimate records how far the local wall clock differs from a remote
// service's clock.
//
// Estimates are recomputed once per connection establishment, discarded on
// disconnect, and always replaced wholesale - never mutated in place.
type ClockEstimate struct {
	OffsetMs    int64     `json:"offset_ms"`     // remote clock minus local clock
	MeasuredAt  time.Time `json:"measured_at"`   // local wall clock at measurement
	RoundTripMs int64     `json:"round_trip_ms"` // full request round trip
}

// RemoteNowMs projects the remote clock at the given local instant.
func (e ClockEstimate) RemoteNowMs(localNow time.Time) int64 {
	return localNow.UnixMilli() + e.OffsetMs
}

// PlaybackCursor anchors a media position to the wall clock, letting the
// engine project the current script position at any instant without
// re-querying the player every tick.
type PlaybackCursor struct {
	MediaTimeMs int64     // media position at the anchor instant
	AnchoredAt  time.Time // wall clock when the anchor was set
}

// Project returns the media position in milliseconds at the given instant.
func (c PlaybackCursor) Project(now time.Time) int64 {
	return c.MediaTimeMs + now.Sub(c.AnchoredAt).Milliseconds()
}
