// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/1letzgo/stashy-sub000/internal/clock"
	"github.com/1letzgo/stashy-sub000/internal/config"
	"github.com/1letzgo/stashy-sub000/internal/models"
)

// mockRelay is an in-process cloud relay recording every API call.
type mockRelay struct {
	srv *httptest.Server

	mu        sync.Mutex
	connected bool
	serverMs  int64
	requests  []string          // method+path in arrival order
	bodies    map[string][]byte // last body per path
	fail      map[string]int    // HTTP status to force per path, 0 = none
}

func newMockRelay(t *testing.T) *mockRelay {
	t.Helper()

	r := &mockRelay{
		connected: true,
		serverMs:  9_000_000,
		bodies:    make(map[string][]byte),
		fail:      make(map[string]int),
	}

	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)

		r.mu.Lock()
		r.requests = append(r.requests, req.Method+" "+req.URL.Path)
		r.bodies[req.URL.Path] = body
		status := r.fail[req.URL.Path]
		connected := r.connected
		serverMs := r.serverMs
		r.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch req.URL.Path {
		case "/connected":
			_ = json.NewEncoder(w).Encode(models.RelayConnected{Connected: connected})
		case "/servertime":
			_ = json.NewEncoder(w).Encode(models.RelayServerTime{ServerTime: serverMs})
		default:
			_ = json.NewEncoder(w).Encode(models.RelayResult{Success: true})
		}
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *mockRelay) lastBody(path string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Unmarshal(r.bodies[path], v)
}

func (r *mockRelay) saw(methodPath string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req == methodPath {
			return true
		}
	}
	return false
}

func testRelayClient(t *testing.T, relay *mockRelay, uploadEndpoint string) *Client {
	t.Helper()
	c, err := NewClient(config.RelayConfig{
		Endpoint:          relay.srv.URL,
		ConnectionKey:     "test-key",
		UploadEndpoint:    uploadEndpoint,
		RequestTimeout:    2 * time.Second,
		RequestsPerSecond: 1000, // keep tests fast
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

// TestConnect_MeasuresClock verifies a successful probe measures the clock
// and unblocks schedule-dependent commands.
func TestConnect_MeasuresClock(t *testing.T) {
	relay := newMockRelay(t)
	c := testRelayClient(t, relay, "")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	if st := c.Status(); !st.Connected {
		t.Errorf("Status() not connected: %+v", st)
	}
	if !relay.saw("GET /servertime") {
		t.Error("clock measurement never hit /servertime")
	}
	if _, err := c.clock.Current(); err != nil {
		t.Errorf("clock estimate unavailable after connect: %v", err)
	}
}

// TestConnect_DeviceNotConnected verifies a negative probe leaves the client
// offline with ErrOffline.
func TestConnect_DeviceNotConnected(t *testing.T) {
	relay := newMockRelay(t)
	relay.connected = false
	c := testRelayClient(t, relay, "")

	err := c.Connect(context.Background())
	if !errors.Is(err, ErrOffline) {
		t.Fatalf("Connect() error = %v, want ErrOffline", err)
	}
	if st := c.Status(); st.Connected || st.Message != "Offline" {
		t.Errorf("Status() = %+v, want offline", st)
	}
}

// TestConnect_Unconfigured verifies missing credentials surface immediately
func TestConnect_Unconfigured(t *testing.T) {
	c, err := NewClient(config.RelayConfig{})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, config.ErrConfiguration) {
		t.Errorf("Connect() error = %v, want ErrConfiguration", err)
	}
}

// TestLoadScript_PublicURLPassthrough verifies a publicly reachable script
// URL reaches /sync/setup unchanged, preceded by the one-time mode switch.
func TestLoadScript_PublicURLPassthrough(t *testing.T) {
	relay := newMockRelay(t)
	c := testRelayClient(t, relay, "")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := c.LoadScript(context.Background(), "https://scripts.example.com/a.funscript"); err != nil {
		t.Fatalf("LoadScript() error: %v", err)
	}

	if !relay.saw("PUT /mode") {
		t.Error("mode was never negotiated")
	}
	var setup models.RelaySetupRequest
	if err := relay.lastBody("/sync/setup", &setup); err != nil {
		t.Fatalf("decode setup body: %v", err)
	}
	if setup.URL != "https://scripts.example.com/a.funscript" {
		t.Errorf("setup url = %q, want passthrough", setup.URL)
	}

	// Second preparation skips the idempotent mode call.
	relay.mu.Lock()
	relay.requests = nil
	relay.mu.Unlock()
	if err := c.LoadScript(context.Background(), "https://scripts.example.com/b.funscript"); err != nil {
		t.Fatalf("second LoadScript() error: %v", err)
	}
	if relay.saw("PUT /mode") {
		t.Error("mode negotiated twice in one session")
	}
}

// TestLoadScript_PrivateURLBridged verifies a loopback-hosted script is
// downloaded, re-uploaded to public hosting, and the public URL registered.
func TestLoadScript_PrivateURLBridged(t *testing.T) {
	relay := newMockRelay(t)

	scriptBody := `{"actions": [{"at": 0, "pos": 50}]}`
	scriptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(scriptBody))
	}))
	defer scriptSrv.Close()

	var uploaded []byte
	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("syncFile")
		if err != nil {
			t.Errorf("upload missing syncFile part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		uploaded, _ = io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(models.RelayUploadResult{
			URL: "https://cdn.example.com/hosted.funscript",
		})
	}))
	defer uploadSrv.Close()

	c := testRelayClient(t, relay, uploadSrv.URL)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	// httptest servers listen on 127.0.0.1, which the relay cannot reach.
	if err := c.LoadScript(context.Background(), scriptSrv.URL+"/a.funscript"); err != nil {
		t.Fatalf("LoadScript() error: %v", err)
	}

	if string(uploaded) != scriptBody {
		t.Errorf("uploaded bytes = %q, want original script", uploaded)
	}
	var setup models.RelaySetupRequest
	if err := relay.lastBody("/sync/setup", &setup); err != nil {
		t.Fatalf("decode setup body: %v", err)
	}
	if setup.URL != "https://cdn.example.com/hosted.funscript" {
		t.Errorf("setup url = %q, want hosted public URL", setup.URL)
	}
}

// TestLoadScript_UploadFailureIsTerminal verifies a failed bridge leaves the
// preparation aborted with the Upload Failed status.
func TestLoadScript_UploadFailureIsTerminal(t *testing.T) {
	relay := newMockRelay(t)

	uploadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer uploadSrv.Close()

	c := testRelayClient(t, relay, uploadSrv.URL)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	scriptSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"actions": [{"at": 0, "pos": 50}]}`))
	}))
	defer scriptSrv.Close()

	if err := c.LoadScript(context.Background(), scriptSrv.URL); err == nil {
		t.Fatal("LoadScript() succeeded with failing upload, want error")
	}
	if st := c.Status(); st.Message != "Upload Failed" {
		t.Errorf("Status() message = %q, want Upload Failed", st.Message)
	}
	if relay.saw("PUT /sync/setup") {
		t.Error("setup was attempted after a terminal upload failure")
	}
}

// TestPlay_ProjectsServerTime verifies the play request carries the remote
// clock projection and the millisecond media position.
func TestPlay_ProjectsServerTime(t *testing.T) {
	relay := newMockRelay(t)
	c := testRelayClient(t, relay, "")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := c.LoadScript(context.Background(), "https://scripts.example.com/a.funscript"); err != nil {
		t.Fatalf("LoadScript() error: %v", err)
	}

	// Pin local time so the projection from the measured estimate is exact.
	localNow := time.Now()
	c.nowFn = func() time.Time { return localNow }
	est, err := c.clock.Current()
	if err != nil {
		t.Fatalf("clock estimate unavailable: %v", err)
	}

	if err := c.Play(context.Background(), 92.5); err != nil {
		t.Fatalf("Play() error: %v", err)
	}

	var play models.RelayPlayRequest
	if err := relay.lastBody("/sync/play", &play); err != nil {
		t.Fatalf("decode play body: %v", err)
	}
	if want := est.RemoteNowMs(localNow); play.EstimatedServerTime != want {
		t.Errorf("estimatedServerTime = %d, want %d", play.EstimatedServerTime, want)
	}
	if play.StartTime != 92_500 {
		t.Errorf("startTime = %d, want 92500", play.StartTime)
	}

	if st := c.Status(); st.Message != PlayPlaying.String() {
		t.Errorf("Status() message = %q, want %q", st.Message, PlayPlaying.String())
	}
}

// TestPlay_Preconditions verifies play is blocked while offline, unprepared,
// or without a clock estimate.
func TestPlay_Preconditions(t *testing.T) {
	relay := newMockRelay(t)
	c := testRelayClient(t, relay, "")

	if err := c.Play(context.Background(), 0); !errors.Is(err, ErrOffline) {
		t.Errorf("Play() offline = %v, want ErrOffline", err)
	}

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := c.Play(context.Background(), 0); !errors.Is(err, ErrNotPrepared) {
		t.Errorf("Play() unprepared = %v, want ErrNotPrepared", err)
	}

	if err := c.LoadScript(context.Background(), "https://scripts.example.com/a.funscript"); err != nil {
		t.Fatalf("LoadScript() error: %v", err)
	}
	c.clock.Invalidate()
	if err := c.Play(context.Background(), 0); !errors.Is(err, clock.ErrUnavailable) {
		t.Errorf("Play() without clock = %v, want ErrUnavailable", err)
	}
}

// TestPause_IsIdempotentOffline verifies pause is a safe no-op when the
// relay was never reached.
func TestPause_IsIdempotentOffline(t *testing.T) {
	relay := newMockRelay(t)
	c := testRelayClient(t, relay, "")

	if err := c.Pause(context.Background()); err != nil {
		t.Fatalf("Pause() offline error: %v", err)
	}
	if relay.saw("PUT /sync/stop") {
		t.Error("stop was sent while offline")
	}
}

// TestRequestFailure_FlipsOffline verifies any failed relay request drops
// connectivity until the next explicit check.
func TestRequestFailure_FlipsOffline(t *testing.T) {
	relay := newMockRelay(t)
	c := testRelayClient(t, relay, "")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	relay.mu.Lock()
	relay.fail["/sync/stop"] = http.StatusBadGateway
	relay.mu.Unlock()

	if err := c.Pause(context.Background()); !errors.Is(err, ErrOffline) {
		t.Errorf("Pause() error = %v, want ErrOffline", err)
	}
	if st := c.Status(); st.Connected || st.Message != "Offline" {
		t.Errorf("Status() = %+v, want offline", st)
	}
}

// TestResolveScriptURL_OperatorOverride verifies the override substitutes
// scheme and host only, keeping path and query.
func TestResolveScriptURL_OperatorOverride(t *testing.T) {
	relay := newMockRelay(t)
	c, err := NewClient(config.RelayConfig{
		Endpoint:          relay.srv.URL,
		ConnectionKey:     "test-key",
		ScriptServerURL:   "https://media.example.com:8443",
		RequestTimeout:    2 * time.Second,
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	got, err := c.resolveScriptURL(context.Background(), "http://127.0.0.1:9999/scene/42/script?apikey=abc")
	if err != nil {
		t.Fatalf("resolveScriptURL() error: %v", err)
	}
	want := "https://media.example.com:8443/scene/42/script?apikey=abc"
	if got != want {
		t.Errorf("resolveScriptURL() = %q, want %q", got, want)
	}
}

// TestIsPrivateHost verifies the bridge trigger classification
func TestIsPrivateHost(t *testing.T) {
	private := []string{"localhost", "127.0.0.1", "10.0.0.5", "192.168.1.20", "172.16.3.4", "169.254.1.1", "0.0.0.0"}
	for _, h := range private {
		if !isPrivateHost(h) {
			t.Errorf("isPrivateHost(%q) = false, want true", h)
		}
	}
	public := []string{"scripts.example.com", "8.8.8.8", "93.184.216.34"}
	for _, h := range public {
		if isPrivateHost(h) {
			t.Errorf("isPrivateHost(%q) = true, want false", h)
		}
	}
}
