// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

// Control-Hub Wire Protocol Models
//
// The LAN control hub speaks a JSON protocol over a persistent websocket:
// each frame is an array of messages, and each message is an object with a
// single key naming the message kind, e.g.
//
//	[{"RequestServerInfo":{"Id":1,"ClientName":"stashy","MessageVersion":3}}]
//
// Every message carries a monotonically increasing Id assigned by the sender.

// Hub message kind names as they appear on the wire.
const (
	HubKindRequestServerInfo = "RequestServerInfo"
	HubKindStartScanning     = "StartScanning"
	HubKindRequestDeviceList = "RequestDeviceList"
	HubKindLinearCmd         = "LinearCmd"
	HubKindScalarCmd         = "ScalarCmd"
	HubKindStopAllDevices    = "StopAllDevices"

	HubKindServerInfo    = "ServerInfo"
	HubKindDeviceAdded   = "DeviceAdded"
	HubKindDeviceRemoved = "DeviceRemoved"
	HubKindDeviceList    = "DeviceList"
	HubKindOk            = "Ok"
	HubKindError         = "Error"
)

// ============================================================================
// Sent messages (client -> hub)
// ============================================================================

// HubRequestServerInfo opens the protocol handshake.
type HubRequestServerInfo struct {
	ID             uint32 `json:"Id"`
	ClientName     string `json:"ClientName"`
	MessageVersion int    `json:"MessageVersion"`
}

// HubStartScanning asks the hub to actively discover devices.
type HubStartScanning struct {
	ID uint32 `json:"Id"`
}

// HubRequestDeviceList asks for devices already paired with the hub.
// Already-paired devices do not re-announce on their own, so this is sent
// alongside StartScanning right after the handshake.
type HubRequestDeviceList struct {
	ID uint32 `json:"Id"`
}

// HubLinearVector is one axis of a LinearCmd.
type HubLinearVector struct {
	Index    uint32  `json:"Index"`
	Duration int64   `json:"Duration"` // transition time in milliseconds
	Position float64 `json:"Position"` // 0.0-1.0
}

// HubLinearCmd moves a linear actuator to a position over a duration.
type HubLinearCmd struct {
	ID          uint32            `json:"Id"`
	DeviceIndex uint32            `json:"DeviceIndex"`
	Vectors     []HubLinearVector `json:"Vectors"`
}

// HubScalarEntry is one axis of a ScalarCmd.
type HubScalarEntry struct {
	Index        uint32  `json:"Index"`
	Scalar       float64 `json:"Scalar"` // 0.0-1.0
	ActuatorType string  `json:"ActuatorType"`
}

// HubScalarCmd sets the intensity of a scalar actuator.
type HubScalarCmd struct {
	ID          uint32           `json:"Id"`
	DeviceIndex uint32           `json:"DeviceIndex"`
	Scalars     []HubScalarEntry `json:"Scalars"`
}

// HubStopAllDevices halts motion on every device known to the hub.
type HubStopAllDevices struct {
	ID uint32 `json:"Id"`
}

// ============================================================================
// Received messages (hub -> client)
// ============================================================================

// HubServerInfo completes the handshake.
type HubServerInfo struct {
	ID             uint32 `json:"Id"`
	ServerName     string `json:"ServerName"`
	MessageVersion int    `json:"MessageVersion"`
	MaxPingTime    int    `json:"MaxPingTime"`
}

// HubDeviceMessages describes the command kinds a device accepts. Presence
// of a key is what matters; the engine derives the capability set from it.
type HubDeviceMessages struct {
	LinearCmd *HubDeviceMessageAttrs `json:"LinearCmd,omitempty"`
	ScalarCmd *HubDeviceMessageAttrs `json:"ScalarCmd,omitempty"`
}

// HubDeviceMessageAttrs carries per-actuator attributes (feature count etc).
type HubDeviceMessageAttrs struct {
	FeatureCount int `json:"FeatureCount,omitempty"`
}

// HubDeviceEntry describes one device in DeviceAdded or DeviceList.
type HubDeviceEntry struct {
	DeviceIndex    uint32            `json:"DeviceIndex"`
	DeviceName     string            `json:"DeviceName"`
	DeviceMessages HubDeviceMessages `json:"DeviceMessages"`
}

// Capabilities maps the accepted command kinds to the engine's capability set.
func (e HubDeviceEntry) Capabilities() map[Capability]bool {
	caps := make(map[Capability]bool, 2)
	if e.DeviceMessages.LinearCmd != nil {
		caps[CapabilityLinear] = true
	}
	if e.DeviceMessages.ScalarCmd != nil {
		caps[CapabilityVibrate] = true
	}
	return caps
}

// HubDeviceAdded announces a newly discovered device.
type HubDeviceAdded struct {
	HubDeviceEntry
}

// HubDeviceRemoved announces a disconnected device.
type HubDeviceRemoved struct {
	DeviceIndex uint32 `json:"DeviceIndex"`
}

// HubDeviceList is the reply to RequestDeviceList and fully replaces the
// known device set.
type HubDeviceList struct {
	ID      uint32           `json:"Id"`
	Devices []HubDeviceEntry `json:"Devices"`
}

// HubOk acknowledges a sent message by id.
type HubOk struct {
	ID uint32 `json:"Id"`
}

// HubError reports a protocol or command failure.
type HubError struct {
	ID           uint32 `json:"Id"`
	ErrorMessage string `json:"ErrorMessage"`
	ErrorCode    int    `json:"ErrorCode"`
}
