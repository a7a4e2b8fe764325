// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package models

import "sort"

// Action is a single motion keyframe: at AtMs milliseconds into the media,
// the actuator should be at position Pos (0-100).
type Action struct {
	AtMs int64 `json:"at"`  // Milliseconds from media start, >= 0
	Pos  int   `json:"pos"` // Target position, 0 (bottom) to 100 (top)
}

// Script is an ordered sequence of motion keyframes plus playback modifiers.
//
// A Script is immutable once parsed and is exclusively owned by the active
// session. Actions are sorted ascending by AtMs with duplicate timestamps
// already collapsed (last one wins).
type Script struct {
	Actions  []Action `json:"actions"`
	Inverted bool     `json:"inverted,omitempty"` // Flip positions (pos -> 100-pos)
	Range    int      `json:"range,omitempty"`    // Amplitude cap in percent, 0 = full range
	Version  string   `json:"version,omitempty"`
}

// ActionAt returns the first action with timestamp >= timeMs, or false when
// timeMs is past the last action.
func (s *Script) ActionAt(timeMs int64) (Action, bool) {
	i := sort.Search(len(s.Actions), func(i int) bool {
		return s.Actions[i].AtMs >= timeMs
	})
	if i >= len(s.Actions) {
		return Action{}, false
	}
	return s.Actions[i], true
}

// DurationMs returns the timestamp of the last action, or 0 for an empty script.
func (s *Script) DurationMs() int64 {
	if len(s.Actions) == 0 {
		return 0
	}
	return s.Actions[len(s.Actions)-1].AtMs
}

// EffectivePos applies the script's Inverted and Range modifiers to a raw
// 0-100 keyframe position and scales the result to the 0.0-1.0 range used
// by actuator commands.
func (s *Script) EffectivePos(pos int) float64 {
	if s.Inverted {
		pos = 100 - pos
	}
	if s.Range > 0 && s.Range < 100 {
		pos = pos * s.Range / 100
	}
	if pos < 0 {
		pos = 0
	}
	if pos > 100 {
		pos = 100
	}
	return float64(pos) / 100.0
}
