// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

// Package config loads and validates engine configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
// environment variables > YAML config file > built-in defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks missing credentials or endpoints. Configuration
// errors are surfaced immediately and never retried automatically.
var ErrConfiguration = errors.New("configuration error")

// Backend selection values for SyncConfig.Backend.
const (
	BackendHub   = "hub"   // LAN control hub over the duplex protocol
	BackendRelay = "relay" // cloud relay over REST
	BackendNone  = "none"  // haptics disabled
)

// Config is the root engine configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Sync    SyncConfig    `koanf:"sync"`
	Hub     HubConfig     `koanf:"hub"`
	Relay   RelayConfig   `koanf:"relay"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the control API HTTP server.
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"` // per minute per IP, 0 disables
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// SyncConfig selects the active backend. Exactly one backend drives devices
// at a time; there is no automatic failover between them.
type SyncConfig struct {
	Backend string `koanf:"backend" validate:"oneof=hub relay none"`
}

// HubConfig configures the local control-hub connection.
type HubConfig struct {
	// Address is the hub's websocket endpoint, e.g. ws://127.0.0.1:12345.
	Address          string        `koanf:"address"`
	ClientName       string        `koanf:"client_name"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	// TickInterval drives the interpolation loop; ~16ms approximates the
	// 60 Hz host refresh the engine coalesces to.
	TickInterval time.Duration `koanf:"tick_interval"`
	SendBuffer   int           `koanf:"send_buffer"`
}

// RelayConfig configures the cloud relay client.
type RelayConfig struct {
	Endpoint      string `koanf:"endpoint"`
	ConnectionKey string `koanf:"connection_key"`
	// UploadEndpoint is the public hosting endpoint used to bridge
	// privately hosted scripts.
	UploadEndpoint string `koanf:"upload_endpoint"`
	// ScriptServerURL optionally substitutes scheme/host/port of script
	// URLs when an operator exposes the media server via a reverse proxy.
	ScriptServerURL   string        `koanf:"script_server_url"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":9743",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   300,
			CORSOrigins:     []string{"*"},
		},
		Sync: SyncConfig{
			Backend: BackendNone, // haptics are opt-in
		},
		Hub: HubConfig{
			Address:          "ws://127.0.0.1:12345",
			ClientName:       "stashy",
			HandshakeTimeout: 10 * time.Second,
			TickInterval:     16 * time.Millisecond,
			SendBuffer:       64,
		},
		Relay: RelayConfig{
			Endpoint:          "",
			ConnectionKey:     "",
			UploadEndpoint:    "",
			ScriptServerURL:   "",
			RequestTimeout:    10 * time.Second,
			RequestsPerSecond: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks struct constraints and cross-field requirements.
// Backend-specific settings are only required for the selected backend.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	switch c.Sync.Backend {
	case BackendHub:
		if c.Hub.Address == "" {
			return fmt.Errorf("%w: hub.address is required when sync.backend=hub", ErrConfiguration)
		}
		if c.Hub.TickInterval <= 0 {
			return fmt.Errorf("%w: hub.tick_interval must be positive", ErrConfiguration)
		}
	case BackendRelay:
		if c.Relay.Endpoint == "" {
			return fmt.Errorf("%w: relay.endpoint is required when sync.backend=relay", ErrConfiguration)
		}
		if c.Relay.ConnectionKey == "" {
			return fmt.Errorf("%w: relay.connection_key is required when sync.backend=relay", ErrConfiguration)
		}
		if c.Relay.UploadEndpoint == "" {
			return fmt.Errorf("%w: relay.upload_endpoint is required when sync.backend=relay", ErrConfiguration)
		}
	}
	return nil
}
