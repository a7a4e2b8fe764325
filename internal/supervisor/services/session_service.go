// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package services

import (
	"context"
	"time"

	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/session"
)

// SessionService owns the sync session's lifecycle: an initial connect
// attempt on start and a deterministic close (stop commands, then
// disconnect) on shutdown.
type SessionService struct {
	session      *session.Session
	closeTimeout time.Duration
}

// NewSessionService wraps a session as a suture service.
func NewSessionService(s *session.Session, closeTimeout time.Duration) *SessionService {
	if closeTimeout == 0 {
		closeTimeout = 10 * time.Second
	}
	return &SessionService{session: s, closeTimeout: closeTimeout}
}

// Serve attempts the initial backend connect, then blocks until shutdown.
//
// A failed initial connect is not fatal and does not trigger a restart:
// reconnection is an explicit player action, so the service stays up and
// waits for POST /sync/connect.
func (s *SessionService) Serve(ctx context.Context) error {
	if err := s.session.Connect(ctx); err != nil {
		logging.Warn().Err(err).Msg("Initial backend connect failed, awaiting explicit connect")
	}

	<-ctx.Done()

	closeCtx, cancel := context.WithTimeout(context.Background(), s.closeTimeout)
	defer cancel()
	if err := s.session.Close(closeCtx); err != nil {
		logging.Warn().Err(err).Msg("Session close did not complete cleanly")
	}
	return ctx.Err()
}

// String names the service in suture logs.
func (s *SessionService) String() string {
	return "sync-session"
}
