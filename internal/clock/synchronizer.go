// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package clock estimates the offset between the local wall clock and a
// remote service's clock.
//
// Remote-scheduled play commands are expressed in the remote clock, so the
// engine must know how far its own clock differs. The measurement runs once
// per connection establishment; steady-state playback never re-polls.
// Repeated polling would perturb the estimate and add load, and staleness up
// to the connection lifetime is accepted.
package clock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/metrics"
	"github.com/1letzgo/stashy-sub000/internal/models"
)

// ErrUnavailable indicates no valid clock estimate exists. Schedule-dependent
// commands are blocked until a fresh measurement succeeds.
var ErrUnavailable = errors.New("clock estimate unavailable")

// TimeSource reads the remote service's current time in Unix milliseconds.
type TimeSource func(ctx context.Context) (int64, error)

// Synchronizer measures and holds the clock offset for one connection.
//
// The algorithm records local time T0, requests the remote time, and records
// local time T1 when the response carrying remote instant Ts arrives.
// Assuming symmetric legs, the one-way delay is (T1-T0)/2 and
//
//	offset = Ts - (T1 - oneWayDelay)
//
// The estimate is replaced wholesale on each successful measurement and
// discarded on failure or disconnect.
type Synchronizer struct {
	source  TimeSource
	timeout time.Duration

	mu  sync.RWMutex
	est *models.ClockEstimate

	nowFn func() time.Time // injectable for tests
}

// New creates a Synchronizer reading remote time from source. A measurement
// that takes longer than timeout marks the estimate unavailable.
func New(source TimeSource, timeout time.Duration) *Synchronizer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Synchronizer{
		source:  source,
		timeout: timeout,
		nowFn:   time.Now,
	}
}

// Measure performs one round-trip measurement and stores the result.
// On failure the previous estimate is discarded so callers cannot schedule
// against stale data.
func (s *Synchronizer) Measure(ctx context.Context) (models.ClockEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	t0 := s.nowFn()
	remoteMs, err := s.source(ctx)
	t1 := s.nowFn()

	if err != nil {
		s.Invalidate()
		return models.ClockEstimate{}, fmt.Errorf("read remote time: %w", err)
	}

	rtt := t1.Sub(t0)
	oneWay := rtt / 2
	offset := remoteMs - t1.Add(-oneWay).UnixMilli()

	est := models.ClockEstimate{
		OffsetMs:    offset,
		MeasuredAt:  t1,
		RoundTripMs: rtt.Milliseconds(),
	}

	s.mu.Lock()
	s.est = &est
	s.mu.Unlock()

	metrics.ClockOffsetMs.Set(float64(est.OffsetMs))
	metrics.ClockRoundTripMs.Set(float64(est.RoundTripMs))
	logging.Info().
		Int64("offset_ms", est.OffsetMs).
		Int64("round_trip_ms", est.RoundTripMs).
		Msg("Clock offset measured")

	return est, nil
}

// Current returns the active estimate, or ErrUnavailable when no successful
// measurement exists for this connection.
func (s *Synchronizer) Current() (models.ClockEstimate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.est == nil {
		return models.ClockEstimate{}, ErrUnavailable
	}
	return *s.est, nil
}

// Invalidate discards the estimate. Called on disconnect and on measurement
// failure.
func (s *Synchronizer) Invalidate() {
	s.mu.Lock()
	s.est = nil
	s.mu.Unlock()
}
