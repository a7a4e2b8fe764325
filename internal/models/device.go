// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

// Capability identifies one kind of actuator a device exposes.
type Capability string

const (
	// CapabilityVibrate marks a scalar (intensity-only) actuator.
	CapabilityVibrate Capability = "vibrate"

	// CapabilityLinear marks a position-seeking linear stroke actuator.
	CapabilityLinear Capability = "linear-stroke"
)

// Device is an actuator device discovered on the control hub.
//
// Devices are never created locally: the hub announces them via DeviceAdded,
// DeviceRemoved and DeviceList messages, and the current device set is always
// a pure function of the most recent of those messages. A device's lifetime
// equals the connection's lifetime.
type Device struct {
	Index        uint32              `json:"index"` // Hub-assigned device index
	Name         string              `json:"name"`
	Capabilities map[Capability]bool `json:"capabilities"`
}

// Has reports whether the device exposes the given actuator capability.
func (d Device) Has(c Capability) bool {
	return d.Capabilities[c]
}

// ActuatorCommand is a tagged command variant dispatched per device.
// Exactly one concrete type exists per actuator kind.
type ActuatorCommand interface {
	isActuatorCommand()
}

// LinearMove commands a position-seeking actuator to travel to Pos
// (0.0-1.0) over DurationMs milliseconds.
type LinearMove struct {
	DurationMs int64
	Pos        float64
}

func (LinearMove) isActuatorCommand() {}

// ScalarLevel commands an intensity actuator to a level of 0.0-1.0.
type ScalarLevel struct {
	Intensity float64
}

func (ScalarLevel) isActuatorCommand() {}
