// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package script

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxScriptSize caps script downloads. Motion scripts are small (a feature
// film is well under 1MB of keyframes); anything larger is malformed.
const maxScriptSize = 16 * 1024 * 1024 // 16MB

// Fetch downloads raw script bytes from the media-fetch collaborator.
// It is used by the local backend before parsing and by the cloud backend's
// bridge path before re-upload.
func Fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build script request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch script: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch script: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize+1))
	if err != nil {
		return nil, fmt.Errorf("read script body: %w", err)
	}
	if len(data) > maxScriptSize {
		return nil, fmt.Errorf("script exceeds %d byte limit", maxScriptSize)
	}
	return data, nil
}
