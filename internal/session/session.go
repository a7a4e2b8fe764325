// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package session is the public facade consumed by the media player.
//
// A Session owns exactly one active backend, chosen by configuration - there
// is no automatic failover between backends - and translates the player's
// coarse play/pause/seek events into backend-specific command sequences.
// Sessions are explicitly constructed and injected with their configuration;
// nothing reads process-wide state.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/1letzgo/stashy-sub000/internal/config"
	"github.com/1letzgo/stashy-sub000/internal/hub"
	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/models"
	"github.com/1letzgo/stashy-sub000/internal/relay"
)

// Backend is one delivery path for actuator commands. Implemented by the
// hub client (LAN duplex protocol) and the relay client (cloud REST).
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	LoadScript(ctx context.Context, url string) error
	Play(ctx context.Context, atSeconds float64) error
	Pause(ctx context.Context) error
	Status() models.SyncStatus
}

// Session is the sync orchestrator handed to the media player's state
// holder. All methods are safe for concurrent use.
type Session struct {
	id      uuid.UUID
	backend Backend

	// gen is the stale-response guard: every Play (and Pause) bumps it,
	// and a play whose generation is stale by completion is discarded so
	// rapid repeated seeks honor only the most recent call's target.
	gen atomic.Uint64

	mu         sync.Mutex
	playCancel context.CancelFunc
}

// New creates a session around an explicit backend.
func New(backend Backend) *Session {
	return &Session{
		id:      uuid.New(),
		backend: backend,
	}
}

// NewFromConfig constructs the configured backend and wraps it in a session.
func NewFromConfig(cfg *config.Config) (*Session, error) {
	switch cfg.Sync.Backend {
	case config.BackendHub:
		return New(hub.NewClient(cfg.Hub)), nil
	case config.BackendRelay:
		client, err := relay.NewClient(cfg.Relay)
		if err != nil {
			return nil, fmt.Errorf("build relay backend: %w", err)
		}
		return New(client), nil
	case config.BackendNone:
		return New(disabledBackend{}), nil
	default:
		return nil, fmt.Errorf("%w: unknown sync backend %q", config.ErrConfiguration, cfg.Sync.Backend)
	}
}

// ID identifies this session in logs and guards against responses that
// outlive the session that issued them.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Connect establishes the backend's connectivity. Called at startup and
// again on explicit player/operator action after a connectivity failure.
func (s *Session) Connect(ctx context.Context) error {
	return s.backend.Connect(ctx)
}

// LoadScript loads a motion script for the active backend. Any playback
// from a previously loaded script is superseded.
func (s *Session) LoadScript(ctx context.Context, url string) error {
	s.supersede()
	return s.backend.LoadScript(ctx, url)
}

// Play starts or reseeks playback at the given media position.
//
// A Play while already playing is a forced reseek: the in-flight play's
// context is cancelled and its eventual result discarded, so only the most
// recent call's schedule takes effect.
func (s *Session) Play(ctx context.Context, atSeconds float64) error {
	gen := s.gen.Add(1)

	s.mu.Lock()
	if s.playCancel != nil {
		s.playCancel()
	}
	// Detach from the caller's cancellation: playback is bound to the
	// session's lifetime, not to the transport request that triggered it.
	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.playCancel = cancel
	s.mu.Unlock()

	err := s.backend.Play(pctx, atSeconds)

	if s.gen.Load() != gen {
		logging.Debug().
			Str("session", s.id.String()).
			Float64("at_seconds", atSeconds).
			Msg("Superseded play result discarded")
		return nil
	}
	return err
}

// Pause stops playback and motion. Safe with no script loaded: the backend
// still stops every connected device.
func (s *Session) Pause(ctx context.Context) error {
	s.supersede()
	return s.backend.Pause(ctx)
}

// Status exposes the backend's observable state for UI rendering.
func (s *Session) Status() models.SyncStatus {
	return s.backend.Status()
}

// Close tears the session down: playback stops deterministically and all
// known devices receive a best-effort stop before the backend disconnects.
func (s *Session) Close(ctx context.Context) error {
	s.supersede()
	if err := s.backend.Pause(ctx); err != nil {
		logging.Warn().Err(err).Str("session", s.id.String()).Msg("Pause during session close failed")
	}
	return s.backend.Disconnect(ctx)
}

// Disconnect drops backend connectivity on explicit player action.
func (s *Session) Disconnect(ctx context.Context) error {
	s.supersede()
	return s.backend.Disconnect(ctx)
}

// supersede invalidates any in-flight play so its late result is discarded.
func (s *Session) supersede() {
	s.gen.Add(1)
	s.mu.Lock()
	if s.playCancel != nil {
		s.playCancel()
		s.playCancel = nil
	}
	s.mu.Unlock()
}

// disabledBackend is the no-op backend used when haptics are not
// configured; player transport events become cheap no-ops.
type disabledBackend struct{}

func (disabledBackend) Connect(context.Context) error             { return nil }
func (disabledBackend) Disconnect(context.Context) error          { return nil }
func (disabledBackend) LoadScript(context.Context, string) error  { return nil }
func (disabledBackend) Play(context.Context, float64) error       { return nil }
func (disabledBackend) Pause(context.Context) error               { return nil }
func (disabledBackend) Status() models.SyncStatus {
	return models.SyncStatus{Message: "Disabled"}
}
