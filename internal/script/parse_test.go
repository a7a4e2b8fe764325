// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package script

import (
	"errors"
	"testing"
)

// TestParse_ValidScript verifies a well-formed script round-trips
func TestParse_ValidScript(t *testing.T) {
	data := []byte(`{
		"version": "1.0",
		"inverted": false,
		"range": 90,
		"actions": [
			{"at": 0, "pos": 0},
			{"at": 1000, "pos": 50},
			{"at": 2000, "pos": 100}
		]
	}`)

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(s.Actions) != 3 {
		t.Fatalf("Parse() actions = %d, want 3", len(s.Actions))
	}
	if s.Range != 90 {
		t.Errorf("Parse() range = %d, want 90", s.Range)
	}
	if s.Version != "1.0" {
		t.Errorf("Parse() version = %q, want 1.0", s.Version)
	}
	if s.DurationMs() != 2000 {
		t.Errorf("DurationMs() = %d, want 2000", s.DurationMs())
	}
}

// TestParse_SortsUnorderedActions verifies out-of-order input is sorted
func TestParse_SortsUnorderedActions(t *testing.T) {
	data := []byte(`{"actions": [
		{"at": 2000, "pos": 100},
		{"at": 0, "pos": 0},
		{"at": 1000, "pos": 50}
	]}`)

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []int64{0, 1000, 2000}
	for i, a := range s.Actions {
		if a.AtMs != want[i] {
			t.Errorf("action %d at %d, want %d", i, a.AtMs, want[i])
		}
	}
}

// TestParse_DuplicateTimestampsLastWins verifies dedup keeps the later entry
func TestParse_DuplicateTimestampsLastWins(t *testing.T) {
	data := []byte(`{"actions": [
		{"at": 0, "pos": 10},
		{"at": 500, "pos": 20},
		{"at": 500, "pos": 80},
		{"at": 1000, "pos": 30}
	]}`)

	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(s.Actions) != 3 {
		t.Fatalf("Parse() actions = %d, want 3 after dedup", len(s.Actions))
	}
	if s.Actions[1].AtMs != 500 || s.Actions[1].Pos != 80 {
		t.Errorf("deduped action = %+v, want {500 80}", s.Actions[1])
	}
}

// TestParse_FormatErrors verifies each malformed input fails with ErrFormat
func TestParse_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"empty actions", `{"actions": []}`},
		{"missing actions", `{"version": "1.0"}`},
		{"negative timestamp", `{"actions": [{"at": -5, "pos": 50}]}`},
		{"position above 100", `{"actions": [{"at": 0, "pos": 101}]}`},
		{"negative position", `{"actions": [{"at": 0, "pos": -1}]}`},
		{"range above 100", `{"range": 150, "actions": [{"at": 0, "pos": 50}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Parse() error = %v, want ErrFormat", err)
			}
		})
	}
}
