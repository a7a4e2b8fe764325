// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

import "testing"

func sampleScript() *Script {
	return &Script{
		Actions: []Action{
			{AtMs: 0, Pos: 0},
			{AtMs: 500, Pos: 40},
			{AtMs: 1000, Pos: 100},
		},
	}
}

// TestActionAt_ReturnsFirstActionAtOrAfter verifies the lookup boundary
func TestActionAt_ReturnsFirstActionAtOrAfter(t *testing.T) {
	s := sampleScript()

	tests := []struct {
		name   string
		timeMs int64
		wantAt int64
		wantOK bool
	}{
		{"at start", 0, 0, true},
		{"between keyframes", 1, 500, true},
		{"exact match", 500, 500, true},
		{"just before last", 999, 1000, true},
		{"at last", 1000, 1000, true},
		{"past end", 1001, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := s.ActionAt(tt.timeMs)
			if ok != tt.wantOK {
				t.Fatalf("ActionAt(%d) ok = %v, want %v", tt.timeMs, ok, tt.wantOK)
			}
			if ok && a.AtMs != tt.wantAt {
				t.Errorf("ActionAt(%d) = action at %d, want %d", tt.timeMs, a.AtMs, tt.wantAt)
			}
		})
	}
}

// TestDurationMs verifies duration is the last action timestamp
func TestDurationMs(t *testing.T) {
	s := sampleScript()
	if got := s.DurationMs(); got != 1000 {
		t.Errorf("DurationMs() = %d, want 1000", got)
	}

	empty := &Script{}
	if got := empty.DurationMs(); got != 0 {
		t.Errorf("empty DurationMs() = %d, want 0", got)
	}
}

// TestEffectivePos verifies inverted and range modifiers plus scaling
func TestEffectivePos(t *testing.T) {
	tests := []struct {
		name     string
		script   Script
		pos      int
		expected float64
	}{
		{"plain full range", Script{}, 75, 0.75},
		{"inverted", Script{Inverted: true}, 75, 0.25},
		{"range cap", Script{Range: 50}, 100, 0.5},
		{"inverted then range", Script{Inverted: true, Range: 50}, 0, 0.5},
		{"range 100 is full range", Script{Range: 100}, 80, 0.8},
		{"range 0 is full range", Script{Range: 0}, 80, 0.8},
		{"bottom", Script{}, 0, 0.0},
		{"top", Script{}, 100, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.script.EffectivePos(tt.pos); got != tt.expected {
				t.Errorf("EffectivePos(%d) = %v, want %v", tt.pos, got, tt.expected)
			}
		})
	}
}
