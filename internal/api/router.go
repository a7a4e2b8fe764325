// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1letzgo/stashy-sub000/internal/config"
)

// NewRouter builds the control API routes.
//
// The sync group is rate limited per IP: the player issues a play on every
// scrub update, so the limit stays generous, but the endpoints do reach
// real hardware.
func NewRouter(h *Handler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/sync", func(r chi.Router) {
		if cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, time.Minute))
		}
		r.Post("/connect", h.Connect)
		r.Post("/disconnect", h.Disconnect)
		r.Post("/script", h.LoadScript)
		r.Post("/play", h.Play)
		r.Post("/pause", h.Pause)
		r.Get("/status", h.Status)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
