// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package hub

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrProtocol marks an unexpected or malformed hub message. Protocol errors
// are connection-level: the read loop tears the connection down on them.
var ErrProtocol = errors.New("hub protocol error")

// jsonUnmarshal is the codec used for message bodies.
var jsonUnmarshal = json.Unmarshal

// outMessage pairs a message kind with its payload for frame encoding.
type outMessage struct {
	kind    string
	payload any
}

// inMessage is one decoded message from an incoming frame, still raw;
// the dispatcher unmarshals body based on kind.
type inMessage struct {
	kind string
	body json.RawMessage
}

// encodeFrame serializes messages into one wire frame: a JSON array of
// single-key objects.
func encodeFrame(msgs ...outMessage) ([]byte, error) {
	frame := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		frame[i] = map[string]any{m.kind: m.payload}
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode hub frame: %w", err)
	}
	return data, nil
}

// decodeFrame parses a wire frame into its messages, preserving order.
// A message object with anything other than exactly one key is malformed.
func decodeFrame(data []byte) ([]inMessage, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	msgs := make([]inMessage, 0, len(raw))
	for _, obj := range raw {
		if len(obj) != 1 {
			return nil, fmt.Errorf("%w: message object has %d keys, want 1", ErrProtocol, len(obj))
		}
		for kind, body := range obj {
			msgs = append(msgs, inMessage{kind: kind, body: body})
		}
	}
	return msgs, nil
}
