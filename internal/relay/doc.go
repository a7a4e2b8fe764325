// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

/*
Package relay implements the cloud backend: a REST client to the remote
relay that controls a cloud-connected actuator device.

Two overlapping state machines track the client:

	connectivity: Unconfigured -> Checking -> Connected | Offline
	playback:     Idle -> Preparing -> Synced -> Playing | Paused

The structural difference from the local backend is that the relay's device
schedules motion itself: Play sends a single clock-projected request and no
per-tick commands follow. The script must be reachable by the relay, so
privately hosted scripts are bridged - downloaded locally and re-uploaded to
the relay's public hosting endpoint - before registration.

Requests are guarded by a circuit breaker and a rate limiter; this client
talks to real hardware through a third-party API and must never retry in a
tight loop. Any non-success response or timeout flips connectivity to
Offline, and the caller re-runs the connectivity check before retrying.
*/
package relay
