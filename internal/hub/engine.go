// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package hub

import (
	"context"
	"sort"
	"time"

	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/metrics"
	"github.com/1letzgo/stashy-sub000/internal/models"
)

// runEngine is the tick loop driving actuator motion.
//
// Each tick projects the playback cursor from its wall-clock anchor, then
// advances a monotonic forward pointer into the sorted action list to the
// first action strictly after the cursor. The pointer only moves forward,
// making the lookup O(1) amortized; the loop never rescans from the start.
// Each distinct target timestamp is dispatched at most once - re-deriving
// the same target on later ticks is a no-op.
//
// Reaching the end of the action list stops the loop and idles all devices.
// The loop runs until then or until its context is cancelled by the session.
func (c *Client) runEngine(ctx context.Context, done chan struct{}, scr *models.Script, startMs int64) {
	defer close(done)

	cursor := models.PlaybackCursor{MediaTimeMs: startMs, AnchoredAt: c.nowFn()}

	// Forward pointer: first action strictly after the starting position.
	idx := sort.Search(len(scr.Actions), func(i int) bool {
		return scr.Actions[i].AtMs > startMs
	})

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	lastDispatched := int64(-1)

	logging.Debug().
		Int64("start_ms", startMs).
		Int("actions_remaining", len(scr.Actions)-idx).
		Msg("Tick loop started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickStart := time.Now()
			nowMs := cursor.Project(c.nowFn())

			for idx < len(scr.Actions) && scr.Actions[idx].AtMs <= nowMs {
				idx++
			}
			if idx >= len(scr.Actions) {
				c.sendStopAll()
				c.mu.Lock()
				if c.state == StatePlaying {
					c.state = StateSynced
					c.statusMsg = StateSynced.String()
				}
				c.mu.Unlock()
				logging.Debug().Msg("Tick loop reached end of script")
				return
			}

			target := scr.Actions[idx]
			if target.AtMs != lastDispatched {
				durationMs := target.AtMs - nowMs
				if durationMs < 1 {
					durationMs = 1
				}
				c.dispatchTarget(scr, target, durationMs)
				lastDispatched = target.AtMs
			}

			metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
		}
	}
}

// dispatchTarget sends one actuator command per capable device: a timed move
// for linear actuators, an intensity level for scalar actuators. Positions
// are scaled from the script's 0-100 domain to each actuator's native range.
func (c *Client) dispatchTarget(scr *models.Script, target models.Action, durationMs int64) {
	pos := scr.EffectivePos(target.Pos)

	for _, d := range c.Devices() {
		cmd := commandFor(d, pos, durationMs)
		switch v := cmd.(type) {
		case models.LinearMove:
			c.send(models.HubKindLinearCmd, models.HubLinearCmd{
				ID:          c.nextID(),
				DeviceIndex: d.Index,
				Vectors: []models.HubLinearVector{
					{Index: 0, Duration: v.DurationMs, Position: v.Pos},
				},
			})
			metrics.CommandsDispatched.WithLabelValues("linear").Inc()
		case models.ScalarLevel:
			c.send(models.HubKindScalarCmd, models.HubScalarCmd{
				ID:          c.nextID(),
				DeviceIndex: d.Index,
				Scalars: []models.HubScalarEntry{
					{Index: 0, Scalar: v.Intensity, ActuatorType: "Vibrate"},
				},
			})
			metrics.CommandsDispatched.WithLabelValues("scalar").Inc()
		}
	}
}

// commandFor builds the actuator command variant for a device. Devices with
// a linear stroke axis get a timed move; vibrate-only devices get the target
// position as an intensity level. Devices with neither capability get nil.
func commandFor(d models.Device, pos float64, durationMs int64) models.ActuatorCommand {
	switch {
	case d.Has(models.CapabilityLinear):
		return models.LinearMove{DurationMs: durationMs, Pos: pos}
	case d.Has(models.CapabilityVibrate):
		return models.ScalarLevel{Intensity: pos}
	default:
		return nil
	}
}
