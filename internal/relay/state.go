// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package relay

// ConnState is the relay connectivity state.
type ConnState int32

const (
	ConnUnconfigured ConnState = iota
	ConnChecking
	ConnConnected
	ConnOffline
)

// String returns the short user-visible name of the connectivity state.
func (s ConnState) String() string {
	switch s {
	case ConnUnconfigured:
		return "Unconfigured"
	case ConnChecking:
		return "Checking"
	case ConnConnected:
		return "Connected"
	case ConnOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// PlayState is the relay playback state, tracked independently of
// connectivity.
type PlayState int32

const (
	PlayIdle PlayState = iota
	PlayPreparing
	PlaySynced
	PlayPlaying
	PlayPaused
)

// String returns the short user-visible name of the playback state.
func (s PlayState) String() string {
	switch s {
	case PlayIdle:
		return "Idle"
	case PlayPreparing:
		return "Preparing"
	case PlaySynced:
		return "Synced"
	case PlayPlaying:
		return "Playing"
	case PlayPaused:
		return "Paused"
	default:
		return "Unknown"
	}
}
