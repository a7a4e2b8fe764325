// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the haptic sync engine:
// - actuator command dispatch volume and failures
// - control-hub connection state and discovered device count
// - clock synchronization quality
// - cloud relay request outcomes
// - tick loop timing

var (
	// Local backend metrics

	CommandsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_commands_dispatched_total",
			Help: "Total actuator commands dispatched to the control hub",
		},
		[]string{"kind"}, // "linear", "scalar", "stop"
	)

	CommandSendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_command_send_errors_total",
			Help: "Total actuator command sends that failed (non-fatal)",
		},
	)

	HubConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connection_state",
			Help: "Control hub connection state (0=disconnected through 6=playing)",
		},
	)

	DevicesKnown = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_devices_known",
			Help: "Devices currently known to the hub connection",
		},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_tick_duration_seconds",
			Help:    "Duration of one tick loop iteration (lookup + dispatch)",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .016},
		},
	)

	// Clock synchronizer metrics

	ClockOffsetMs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clock_offset_milliseconds",
			Help: "Measured offset between local and relay clocks",
		},
	)

	ClockRoundTripMs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "clock_round_trip_milliseconds",
			Help: "Round trip time of the last clock measurement",
		},
	)

	// Cloud relay metrics

	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total cloud relay requests by endpoint and result",
		},
		[]string{"endpoint", "result"}, // result: "success", "failure", "rejected"
	)

	RelayBridgeUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bridge_uploads_total",
			Help: "Script bridge uploads (private URL re-hosted publicly)",
		},
		[]string{"result"},
	)
)
