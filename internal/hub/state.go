// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package hub

// State is the control-hub connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateScanning
	StateSynced
	StatePlaying
)

// String returns the short user-visible name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateHandshaking:
		return "Handshaking"
	case StateReady:
		return "Ready"
	case StateScanning:
		return "Scanning"
	case StateSynced:
		return "Synced"
	case StatePlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// connected reports whether the duplex connection is established.
func (s State) connected() bool {
	return s >= StateReady
}
