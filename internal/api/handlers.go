// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package api exposes the sync orchestrator to the media-player
// collaborator over HTTP. The player invokes play/pause on every
// transport-control action and on periodic scrub updates, and polls status
// for UI rendering.
package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/1letzgo/stashy-sub000/internal/config"
	"github.com/1letzgo/stashy-sub000/internal/hub"
	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/relay"
	"github.com/1letzgo/stashy-sub000/internal/script"
	"github.com/1letzgo/stashy-sub000/internal/session"
)

// Handler carries the session into HTTP handlers.
type Handler struct {
	session *session.Session
}

// NewHandler creates the API handler around a session.
func NewHandler(s *session.Session) *Handler {
	return &Handler{session: s}
}

// apiResponse is the JSON envelope for all API responses.
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// loadScriptRequest is the body of POST /api/v1/sync/script.
type loadScriptRequest struct {
	URL string `json:"url"`
}

// playRequest is the body of POST /api/v1/sync/play.
type playRequest struct {
	Seconds float64 `json:"seconds"`
}

// Connect handles POST /api/v1/sync/connect: establish backend
// connectivity. This is also the explicit retry path after a connectivity
// failure; nothing reconnects automatically.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Connect(r.Context()); err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// Disconnect handles POST /api/v1/sync/disconnect.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Disconnect(r.Context()); err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// LoadScript handles POST /api/v1/sync/script.
func (h *Handler) LoadScript(w http.ResponseWriter, r *http.Request) {
	var req loadScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		respondError(w, http.StatusBadRequest, "body must be {\"url\": \"...\"}")
		return
	}
	if err := h.session.LoadScript(r.Context(), req.URL); err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// Play handles POST /api/v1/sync/play.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seconds < 0 {
		respondError(w, http.StatusBadRequest, "body must be {\"seconds\": n} with n >= 0")
		return
	}
	if err := h.session.Play(r.Context(), req.Seconds); err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// Pause handles POST /api/v1/sync/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Pause(r.Context()); err != nil {
		respondSyncError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// Status handles GET /api/v1/sync/status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// HealthLive handles GET /api/v1/health/live: process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{"status": "alive"}})
}

// HealthReady handles GET /api/v1/health/ready: the engine is ready once
// the session exists; backend connectivity is reported, not required.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: h.session.Status()})
}

// respondSyncError maps engine error taxonomy onto HTTP statuses. The
// response carries the error's message, while the status endpoint keeps the
// short user-visible strings.
func respondSyncError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, config.ErrConfiguration):
		status = http.StatusPreconditionFailed
	case errors.Is(err, script.ErrFormat):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, hub.ErrNotConnected), errors.Is(err, hub.ErrNoScript),
		errors.Is(err, relay.ErrNotPrepared):
		status = http.StatusConflict
	}
	respondError(w, status, err.Error())
}

// respondError writes a failure envelope.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, apiResponse{Success: false, Error: msg})
}

// respondJSON writes any envelope.
func respondJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode API response")
	}
}
