// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

/*
Package hub implements the local backend: a persistent duplex client to the
LAN control hub that discovers actuator devices and drives their motion with
a self-timed interpolation loop.

Connection lifecycle:

	Disconnected -> Connecting -> Handshaking -> Ready -> {Scanning | Synced | Playing} -> Disconnected

All outgoing frames are serialized through a single writer goroutine so
partial protocol frames never interleave. Incoming messages are decoded by a
read loop and dispatched by message kind. Command sends are fire-and-forget:
the tick loop never blocks waiting for a device acknowledgment, and an
individual failed send is non-fatal because the next tick naturally issues a
corrective command. Only a connection-level I/O failure returns the client to
Disconnected, which also clears the device set.
*/
package hub
