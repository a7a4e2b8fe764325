// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/metrics"
	"github.com/1letzgo/stashy-sub000/internal/models"
	"github.com/1letzgo/stashy-sub000/internal/script"
)

// LoadScript prepares a script for remote playback and registers it with
// the relay.
//
// The script lives behind a URL, and the relay must be able to fetch it:
//
//  a) publicly reachable URL - passed through unchanged;
//  b) privately reachable only (loopback or private address ranges) - the
//     bridge is mandatory: the bytes are downloaded locally, re-uploaded to
//     the relay's public hosting endpoint, and the returned public URL is
//     substituted;
//  c) an operator-configured public-URL override substitutes scheme, host
//     and port only, for resources exposed via a reverse proxy.
//
// Any failure in download, upload or the registration call is terminal for
// this preparation attempt; no partial or best-effort playback follows.
func (c *Client) LoadScript(ctx context.Context, scriptURL string) error {
	c.mu.RLock()
	connState := c.connState
	c.mu.RUnlock()
	if connState != ConnConnected {
		return fmt.Errorf("prepare script: %w", ErrOffline)
	}

	c.setPlayState(PlayPreparing)

	publicURL, err := c.resolveScriptURL(ctx, scriptURL)
	if err != nil {
		c.mu.Lock()
		c.playState = PlayIdle
		c.statusMsg = "Upload Failed"
		c.mu.Unlock()
		return fmt.Errorf("prepare script: %w", err)
	}

	if err := c.ensureMode(ctx); err != nil {
		c.failPreparation()
		return fmt.Errorf("prepare script: %w", err)
	}

	if err := c.doJSON(ctx, http.MethodPut, "/sync/setup", models.RelaySetupRequest{URL: publicURL}, nil); err != nil {
		c.failPreparation()
		return fmt.Errorf("prepare script: %w", err)
	}

	c.setPlayState(PlaySynced)
	logging.Info().Str("url", publicURL).Msg("Script registered with relay")
	return nil
}

// failPreparation marks a terminal preparation failure.
func (c *Client) failPreparation() {
	c.mu.Lock()
	c.playState = PlayIdle
	c.statusMsg = "Sync Failed"
	c.mu.Unlock()
}

// resolveScriptURL turns the player's script URL into one the relay can
// fetch. The operator override takes precedence; otherwise private
// addresses force the bridge path.
func (c *Client) resolveScriptURL(ctx context.Context, scriptURL string) (string, error) {
	u, err := url.Parse(scriptURL)
	if err != nil {
		return "", fmt.Errorf("parse script url: %w", err)
	}

	if c.scriptOverride != nil {
		substituted := *u
		substituted.Scheme = c.scriptOverride.Scheme
		substituted.Host = c.scriptOverride.Host
		return substituted.String(), nil
	}

	if isPrivateHost(u.Hostname()) {
		return c.bridgeUpload(ctx, scriptURL)
	}
	return scriptURL, nil
}

// bridgeUpload re-hosts a privately reachable script on the relay's public
// hosting endpoint and returns the public URL.
func (c *Client) bridgeUpload(ctx context.Context, scriptURL string) (string, error) {
	data, err := script.Fetch(ctx, c.httpClient, scriptURL)
	if err != nil {
		metrics.RelayBridgeUploads.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("bridge download: %w", err)
	}

	publicURL, err := c.upload(ctx, data)
	if err != nil {
		metrics.RelayBridgeUploads.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("bridge upload: %w", err)
	}

	metrics.RelayBridgeUploads.WithLabelValues("success").Inc()
	logging.Info().
		Int("bytes", len(data)).
		Str("public_url", publicURL).
		Msg("Private script bridged to public hosting")
	return publicURL, nil
}

// upload posts script bytes to the public hosting endpoint as a multipart
// form and returns the hosted URL.
func (c *Client) upload(ctx context.Context, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("syncFile", "script.funscript")
	if err != nil {
		return "", fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write multipart form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadEndpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("upload returned HTTP %d: %s", resp.StatusCode, string(errBody))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	var result models.RelayUploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload response missing url")
	}
	return result.URL, nil
}

// isPrivateHost reports whether a hostname resolves into address space the
// public relay cannot reach. Non-IP hostnames other than localhost are
// assumed public; the relay's own fetch will fail loudly if that is wrong.
func isPrivateHost(hostname string) bool {
	if hostname == "localhost" {
		return true
	}
	ip := net.ParseIP(hostname)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
