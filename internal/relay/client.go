// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/1letzgo/stashy-sub000/internal/clock"
	"github.com/1letzgo/stashy-sub000/internal/config"
	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/metrics"
	"github.com/1letzgo/stashy-sub000/internal/models"
)

var (
	// ErrOffline is returned when the relay is unreachable or has rejected a
	// request. The caller must re-run the connectivity check before retrying
	// play; nothing retries automatically.
	ErrOffline = errors.New("relay offline")

	// ErrNotPrepared is returned for Play before a script is registered.
	ErrNotPrepared = errors.New("no script prepared on relay")
)

// maxErrorBodySize limits response body reads for error reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// Client talks to the cloud relay's REST API.
type Client struct {
	endpoint       string
	connectionKey  string
	uploadEndpoint string
	scriptOverride *url.URL // operator-configured public substitution, may be nil
	httpClient     *http.Client
	breaker        *gobreaker.CircuitBreaker[[]byte]
	limiter        *rate.Limiter
	clock          *clock.Synchronizer
	nowFn          func() time.Time

	mu          sync.RWMutex
	connState   ConnState
	playState   PlayState
	statusMsg   string
	modeEnsured bool
}

// NewClient creates a relay client from configuration. The clock
// synchronizer reads remote time from the relay's /servertime endpoint and
// is re-measured on every successful connectivity check.
func NewClient(cfg config.RelayConfig) (*Client, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}

	var override *url.URL
	if cfg.ScriptServerURL != "" {
		u, err := url.Parse(cfg.ScriptServerURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: invalid relay.script_server_url %q", config.ErrConfiguration, cfg.ScriptServerURL)
		}
		override = u
	}

	c := &Client{
		endpoint:       strings.TrimRight(cfg.Endpoint, "/"),
		connectionKey:  cfg.ConnectionKey,
		uploadEndpoint: cfg.UploadEndpoint,
		scriptOverride: override,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		nowFn:          time.Now,
		connState:      ConnUnconfigured,
		playState:      PlayIdle,
		statusMsg:      ConnUnconfigured.String(),
	}
	if c.endpoint != "" && c.connectionKey != "" {
		c.connState = ConnOffline
		c.statusMsg = "Offline"
	}

	// The breaker guards a real hardware API: open after 3 consecutive
	// failures, probe again after 60 seconds.
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "relay-api",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Relay circuit breaker state change")
		},
	})

	c.clock = clock.New(c.readServerTime, cfg.RequestTimeout)
	return c, nil
}

// Connect runs the reachability probe. On success the client becomes
// Connected and a fresh clock measurement runs; a failed measurement leaves
// the client Connected but blocks schedule-dependent commands until the
// next successful check.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.RLock()
	unconfigured := c.connState == ConnUnconfigured
	c.mu.RUnlock()
	if unconfigured {
		return fmt.Errorf("%w: relay endpoint or connection key missing", config.ErrConfiguration)
	}

	c.setConnState(ConnChecking, ConnChecking.String())

	var probe models.RelayConnected
	if err := c.doJSON(ctx, http.MethodGet, "/connected", nil, &probe); err != nil {
		return fmt.Errorf("connectivity check: %w", err)
	}
	if !probe.Connected {
		c.setConnState(ConnOffline, "Offline")
		return fmt.Errorf("%w: device not connected to relay", ErrOffline)
	}

	c.setConnState(ConnConnected, ConnConnected.String())

	if _, err := c.clock.Measure(ctx); err != nil {
		logging.Warn().Err(err).Msg("Clock measurement failed, play is blocked until the next connectivity check")
	}
	return nil
}

// Disconnect discards session state: the clock estimate is dropped and the
// firmware mode will be re-negotiated on the next preparation.
func (c *Client) Disconnect(_ context.Context) error {
	c.clock.Invalidate()
	c.mu.Lock()
	if c.connState == ConnConnected || c.connState == ConnChecking {
		c.connState = ConnOffline
	}
	c.playState = PlayIdle
	c.modeEnsured = false
	c.statusMsg = "Disconnected"
	c.mu.Unlock()
	return nil
}

// Play computes the relay's estimated current time from the measured clock
// offset and sends a single play request; the remote device self-schedules
// motion relative to that projected time. Requires a successful clock
// measurement and a prepared script.
func (c *Client) Play(ctx context.Context, atSeconds float64) error {
	c.mu.RLock()
	connState, playState := c.connState, c.playState
	c.mu.RUnlock()
	if connState != ConnConnected {
		return fmt.Errorf("play: %w", ErrOffline)
	}
	if playState < PlaySynced {
		return fmt.Errorf("play: %w", ErrNotPrepared)
	}

	est, err := c.clock.Current()
	if err != nil {
		return fmt.Errorf("play blocked: %w", err)
	}

	req := models.RelayPlayRequest{
		EstimatedServerTime: est.RemoteNowMs(c.nowFn()),
		StartTime:           int64(atSeconds * 1000),
	}
	if err := c.doJSON(ctx, http.MethodPut, "/sync/play", req, nil); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	c.setPlayState(PlayPlaying)
	return nil
}

// Pause sends the single idempotent stop request.
func (c *Client) Pause(ctx context.Context) error {
	c.mu.RLock()
	connState := c.connState
	c.mu.RUnlock()
	if connState != ConnConnected {
		return nil
	}

	if err := c.doJSON(ctx, http.MethodPut, "/sync/stop", nil, nil); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	c.mu.Lock()
	if c.playState == PlayPlaying {
		c.playState = PlayPaused
	}
	c.mu.Unlock()
	return nil
}

// Status reports the observable relay state for UI rendering.
func (c *Client) Status() models.SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.SyncStatus{
		Connected: c.connState == ConnConnected,
		Syncing:   c.playState >= PlaySynced,
		Message:   c.statusMsg,
	}
}

// readServerTime is the clock synchronizer's time source.
func (c *Client) readServerTime(ctx context.Context) (int64, error) {
	var st models.RelayServerTime
	if err := c.doJSON(ctx, http.MethodGet, "/servertime", nil, &st); err != nil {
		return 0, err
	}
	return st.ServerTime, nil
}

// ensureMode idempotently puts the device firmware into script-playback
// mode. Runs once per session; subsequent preparations skip it.
func (c *Client) ensureMode(ctx context.Context) error {
	c.mu.RLock()
	done := c.modeEnsured
	c.mu.RUnlock()
	if done {
		return nil
	}

	req := models.RelayModeRequest{Mode: models.RelayModeSync}
	if err := c.doJSON(ctx, http.MethodPut, "/mode", req, nil); err != nil {
		return fmt.Errorf("set sync mode: %w", err)
	}

	c.mu.Lock()
	c.modeEnsured = true
	c.mu.Unlock()
	return nil
}

// doJSON performs one relay request through the rate limiter and circuit
// breaker. Any non-success response or transport failure flips connectivity
// to Offline; the user-visible status never carries raw protocol payloads.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, body)
	})

	endpoint := strings.TrimLeft(path, "/")
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RelayRequests.WithLabelValues(endpoint, "rejected").Inc()
		} else {
			metrics.RelayRequests.WithLabelValues(endpoint, "failure").Inc()
		}
		c.setConnState(ConnOffline, "Offline")
		logging.Error().Err(err).Str("endpoint", endpoint).Msg("Relay request failed")
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	metrics.RelayRequests.WithLabelValues(endpoint, "success").Inc()

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			// Request-level protocol error for the cloud backend.
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}

// roundTrip executes one HTTP exchange against the relay.
func (c *Client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Connection-Key", c.connectionKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("relay returned HTTP %d: %s", resp.StatusCode, string(errBody))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// setConnState transitions connectivity and its user-visible message.
func (c *Client) setConnState(s ConnState, msg string) {
	c.mu.Lock()
	c.connState = s
	c.statusMsg = msg
	c.mu.Unlock()
}

// setPlayState transitions playback and mirrors it to the status message.
func (c *Client) setPlayState(s PlayState) {
	c.mu.Lock()
	c.playState = s
	c.statusMsg = s.String()
	c.mu.Unlock()
}
