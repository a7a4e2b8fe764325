// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package main is the entry point for the Stashy sync daemon.
//
// Stashy keeps haptic actuator devices in time with video playback. A media
// player reports transport events (play, pause, seek) over the local control
// API, and the daemon translates the loaded motion script into timed device
// commands on one of two backends:
//
//   - hub: a persistent websocket connection to a LAN control hub that
//     manages devices directly
//   - relay: a cloud relay REST API for internet-connected devices
//
// # Application Architecture
//
// The daemon initializes components in the following order:
//
//  1. Configuration: settings from config file and environment (Koanf v2)
//  2. Session: the configured sync backend wrapped in the orchestrator
//  3. Supervisor tree: session lifecycle and HTTP server as suture services
//  4. HTTP server: control API, health endpoints and Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (prefix STASHY_, e.g. STASHY_HUB_ADDRESS)
//   - Config file (config.yaml, path via STASHY_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The daemon handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new API connections
//   - Stops playback and sends a stop to every known device
//   - Disconnects the active backend
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/1letzgo/stashy-sub000/internal/api"
	"github.com/1letzgo/stashy-sub000/internal/config"
	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/session"
	"github.com/1letzgo/stashy-sub000/internal/supervisor"
	"github.com/1letzgo/stashy-sub000/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger for config errors, config not yet available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("backend", cfg.Sync.Backend).
		Str("listen_addr", cfg.Server.ListenAddr).
		Msg("Starting Stashy")

	sess, err := session.NewFromConfig(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build sync backend")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	slogLogger := logging.NewSlogLogger()

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slogLogger, treeCfg)

	tree.AddSyncService(services.NewSessionService(sess, cfg.Server.ShutdownTimeout))

	handler := api.NewHandler(sess)
	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      api.NewRouter(handler, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ListenAddr, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stashy stopped")
}
