// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

// Cloud Relay REST API Models
//
// The cloud relay exposes a small REST surface: a connectivity probe, a
// server-time read used for clock synchronization, firmware mode selection,
// script-URL registration, clock-projected play, stop, and a separate public
// upload endpoint used to bridge privately hosted scripts.

// RelayConnected is the response to GET /connected.
type RelayConnected struct {
	Connected bool `json:"connected"`
}

// RelayServerTime is the response to GET /servertime.
type RelayServerTime struct {
	ServerTime int64 `json:"serverTime"` // relay clock, Unix milliseconds
}

// RelayModeRequest selects the device firmware mode via PUT /mode.
// Script playback requires RelayModeSync.
type RelayModeRequest struct {
	Mode int `json:"mode"`
}

// RelayModeSync is the firmware mode in which the device schedules motion
// itself from a registered script.
const RelayModeSync = 1

// RelaySetupRequest registers a publicly reachable script URL via
// PUT /sync/setup. The relay fetches the script from this URL, so it must
// never point into a private address range.
type RelaySetupRequest struct {
	URL string `json:"url"`
}

// RelayPlayRequest starts remote-scheduled playback via PUT /sync/play.
//
// EstimatedServerTime is the local wall clock projected onto the relay's
// clock using the measured offset; StartTime is the media position in
// milliseconds. The remote device self-schedules motion relative to the
// projected time, so no further per-tick commands are needed while playing.
type RelayPlayRequest struct {
	EstimatedServerTime int64 `json:"estimatedServerTime"`
	StartTime           int64 `json:"startTime"`
}

// RelayResult is the generic success/error envelope returned by relay calls.
type RelayResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RelayUploadResult is the response from the public upload endpoint,
// carrying the re-hosted script's public URL.
type RelayUploadResult struct {
	URL string `json:"url"`
}
