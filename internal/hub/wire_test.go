// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package hub

import (
	"errors"
	"testing"

	"github.com/1letzgo/stashy-sub000/internal/models"
)

// TestEncodeFrame verifies the array-of-single-key-object frame shape
func TestEncodeFrame(t *testing.T) {
	frame, err := encodeFrame(outMessage{
		kind:    models.HubKindStartScanning,
		payload: models.HubStartScanning{ID: 7},
	})
	if err != nil {
		t.Fatalf("encodeFrame() error: %v", err)
	}

	msgs, err := decodeFrame(frame)
	if err != nil {
		t.Fatalf("decodeFrame() error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("decodeFrame() messages = %d, want 1", len(msgs))
	}
	if msgs[0].kind != models.HubKindStartScanning {
		t.Errorf("decoded kind = %q, want StartScanning", msgs[0].kind)
	}

	var body models.HubStartScanning
	if err := jsonUnmarshal(msgs[0].body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.ID != 7 {
		t.Errorf("decoded id = %d, want 7", body.ID)
	}
}

// TestDecodeFrame_PreservesOrder verifies multi-message frames keep order
func TestDecodeFrame_PreservesOrder(t *testing.T) {
	data := []byte(`[{"Ok":{"Id":1}},{"DeviceRemoved":{"DeviceIndex":3}},{"Ok":{"Id":2}}]`)

	msgs, err := decodeFrame(data)
	if err != nil {
		t.Fatalf("decodeFrame() error: %v", err)
	}

	want := []string{"Ok", "DeviceRemoved", "Ok"}
	if len(msgs) != len(want) {
		t.Fatalf("decodeFrame() messages = %d, want %d", len(msgs), len(want))
	}
	for i, m := range msgs {
		if m.kind != want[i] {
			t.Errorf("message %d kind = %q, want %q", i, m.kind, want[i])
		}
	}
}

// TestDecodeFrame_Malformed verifies malformed frames fail with ErrProtocol
func TestDecodeFrame_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `!!!`},
		{"not an array", `{"Ok":{"Id":1}}`},
		{"two keys in one message", `[{"Ok":{"Id":1},"Error":{"Id":2}}]`},
		{"empty message object", `[{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFrame([]byte(tt.data))
			if err == nil {
				t.Fatal("decodeFrame() succeeded, want error")
			}
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("decodeFrame() error = %v, want ErrProtocol", err)
			}
		})
	}
}
