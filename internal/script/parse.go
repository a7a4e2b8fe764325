// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package script parses raw motion-script resources into immutable Script
// entities. Parsing is pure: no side effects, no network access.
package script

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/1letzgo/stashy-sub000/internal/models"
)

// ErrFormat is returned for malformed script structure or out-of-range
// values. A format error is terminal for that load; no partial script is
// ever used.
var ErrFormat = errors.New("script format error")

// rawScript mirrors the funscript resource shape:
// {actions:[{at,pos}], inverted?, range?, version?}
type rawScript struct {
	Actions  []models.Action `json:"actions"`
	Inverted bool            `json:"inverted"`
	Range    int             `json:"range"`
	Version  string          `json:"version"`
}

// Parse decodes raw script bytes into a Script.
//
// Actions are sorted ascending by timestamp. Duplicate timestamps collapse
// to the last occurrence in input order (last-wins). Position values outside
// 0-100 or negative timestamps fail the whole parse with ErrFormat.
func Parse(data []byte) (*models.Script, error) {
	var raw rawScript
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(raw.Actions) == 0 {
		return nil, fmt.Errorf("%w: script contains no actions", ErrFormat)
	}

	for i, a := range raw.Actions {
		if a.AtMs < 0 {
			return nil, fmt.Errorf("%w: action %d has negative timestamp %d", ErrFormat, i, a.AtMs)
		}
		if a.Pos < 0 || a.Pos > 100 {
			return nil, fmt.Errorf("%w: action %d position %d out of range 0-100", ErrFormat, i, a.Pos)
		}
	}
	if raw.Range < 0 || raw.Range > 100 {
		return nil, fmt.Errorf("%w: range %d out of range 0-100", ErrFormat, raw.Range)
	}

	actions := make([]models.Action, len(raw.Actions))
	copy(actions, raw.Actions)

	// Stable sort keeps input order among equal timestamps so that the
	// last-wins dedup below picks the later occurrence.
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].AtMs < actions[j].AtMs
	})

	deduped := actions[:0]
	for _, a := range actions {
		if n := len(deduped); n > 0 && deduped[n-1].AtMs == a.AtMs {
			deduped[n-1] = a
			continue
		}
		deduped = append(deduped, a)
	}

	return &models.Script{
		Actions:  deduped,
		Inverted: raw.Inverted,
		Range:    raw.Range,
		Version:  raw.Version,
	}, nil
}
