// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

/*
Package models defines data structures for the haptic sync engine.

This package contains all data models shared across the engine, including
the motion-script entities, device and actuator types, clock estimation
records, control-hub wire messages, and relay API payloads. It serves as
the single source of truth for data structure definitions.

Key Components:

  - Action / Script: time-indexed motion keyframes parsed from a funscript
  - Device: a discovered actuator device and its capability set
  - ClockEstimate: measured offset between local and relay clocks
  - PlaybackCursor: wall-clock anchored projection of the media timeline
  - Hub* types: control-hub duplex protocol messages
  - Relay* types: cloud relay REST payloads
  - SyncStatus: observable state exposed to the media player
*/
package models
