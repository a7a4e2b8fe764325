// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package metrics provides Prometheus instrumentation for the sync engine.
//
// Metrics are registered via promauto at package init and exposed on the
// control API's /metrics endpoint.
package metrics
