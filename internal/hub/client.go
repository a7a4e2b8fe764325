// Stashy - Haptic Playback Synchronization Engine
// Copyright 2026 1letzgo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/1letzgo/stashy-sub000

package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1letzgo/stashy-sub000/internal/config"
	"github.com/1letzgo/stashy-sub000/internal/logging"
	"github.com/1letzgo/stashy-sub000/internal/metrics"
	"github.com/1letzgo/stashy-sub000/internal/models"
	"github.com/1letzgo/stashy-sub000/internal/script"
)

const (
	// protocolVersion is the hub message schema version sent in the handshake.
	protocolVersion = 3

	// writeWait bounds a single frame write on the duplex connection.
	writeWait = 10 * time.Second
)

var (
	// ErrNotConnected is returned for operations requiring an established
	// hub connection.
	ErrNotConnected = errors.New("hub not connected")

	// ErrNoScript is returned for Play without a loaded script.
	ErrNoScript = errors.New("no script loaded")
)

// Client is the persistent duplex connection to the LAN control hub.
//
// All sends are serialized through a single writer goroutine feeding the
// websocket; incoming frames are decoded by a read loop and dispatched by
// message kind. The client owns the discovered device set and, while
// playing, the tick loop driving actuator motion.
type Client struct {
	addr             string
	clientName       string
	handshakeTimeout time.Duration
	tickInterval     time.Duration
	sendBuffer       int
	httpClient       *http.Client

	msgID atomic.Uint32
	nowFn func() time.Time // injectable for tests

	// playMu serializes engine stop-and-restart. Without it two concurrent
	// reseeks can both observe no running engine and spawn two tick loops,
	// the second registration orphaning the first loop's cancel handle.
	playMu sync.Mutex

	mu           sync.RWMutex
	state        State
	conn         *websocket.Conn
	devices      map[uint32]models.Device
	script       *models.Script
	statusMsg    string
	closing      bool
	sendCh       chan []byte
	stopCh       chan struct{}
	serverInfoCh chan models.HubServerInfo
	engineCancel context.CancelFunc
	engineDone   chan struct{}

	wg sync.WaitGroup
}

// NewClient creates a hub client from configuration. The client starts
// Disconnected; call Connect to establish the duplex connection.
func NewClient(cfg config.HubConfig) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 16 * time.Millisecond
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return &Client{
		addr:             cfg.Address,
		clientName:       cfg.ClientName,
		handshakeTimeout: cfg.HandshakeTimeout,
		tickInterval:     cfg.TickInterval,
		sendBuffer:       cfg.SendBuffer,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		nowFn:            time.Now,
		devices:          make(map[uint32]models.Device),
		state:            StateDisconnected,
		statusMsg:        StateDisconnected.String(),
	}
}

// nextID returns the next monotonically increasing message id.
func (c *Client) nextID() uint32 {
	return c.msgID.Add(1)
}

// Connect establishes the duplex connection, performs the protocol
// handshake, and immediately requests device discovery: an active scan plus
// a list of already-paired devices, which do not re-announce on their own.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.closing = false
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.addr, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.statusMsg = "Offline"
		c.mu.Unlock()
		return fmt.Errorf("hub dial %s: %w", c.addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.sendCh = make(chan []byte, c.sendBuffer)
	c.stopCh = make(chan struct{})
	c.serverInfoCh = make(chan models.HubServerInfo, 1)
	c.devices = make(map[uint32]models.Device)
	c.state = StateHandshaking
	sendCh, stopCh, infoCh := c.sendCh, c.stopCh, c.serverInfoCh
	c.mu.Unlock()

	c.wg.Add(2)
	go c.writePump(conn, sendCh, stopCh)
	go c.readPump(conn)

	c.send(models.HubKindRequestServerInfo, models.HubRequestServerInfo{
		ID:             c.nextID(),
		ClientName:     c.clientName,
		MessageVersion: protocolVersion,
	})

	select {
	case info := <-infoCh:
		logging.Info().
			Str("server", info.ServerName).
			Int("message_version", info.MessageVersion).
			Msg("Hub handshake complete")
	case <-time.After(c.handshakeTimeout):
		c.teardown("Offline")
		c.wg.Wait()
		return fmt.Errorf("hub handshake: %w", context.DeadlineExceeded)
	case <-ctx.Done():
		c.teardown("Offline")
		c.wg.Wait()
		return fmt.Errorf("hub handshake: %w", ctx.Err())
	}

	c.setState(StateReady)
	c.send(models.HubKindStartScanning, models.HubStartScanning{ID: c.nextID()})
	c.send(models.HubKindRequestDeviceList, models.HubRequestDeviceList{ID: c.nextID()})
	c.setState(StateScanning)
	return nil
}

// Disconnect tears the session down: the tick loop is stopped before this
// returns, every known device receives a best-effort stop, and the device
// set is cleared.
func (c *Client) Disconnect(_ context.Context) error {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	c.mu.Unlock()

	c.playMu.Lock()
	c.stopEngine()
	c.sendStopAll()
	c.playMu.Unlock()

	c.teardown(StateDisconnected.String())
	c.wg.Wait()
	return nil
}

// LoadScript fetches and parses a motion script. On success the client
// enters Synced; no device motion happens until Play.
func (c *Client) LoadScript(ctx context.Context, url string) error {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()
	if !st.connected() {
		return ErrNotConnected
	}

	data, err := script.Fetch(ctx, c.httpClient, url)
	if err != nil {
		c.setStatusMsg("Sync Failed")
		return fmt.Errorf("load script: %w", err)
	}
	scr, err := script.Parse(data)
	if err != nil {
		c.setStatusMsg("Sync Failed")
		return fmt.Errorf("load script: %w", err)
	}

	c.playMu.Lock()
	c.stopEngine()
	c.mu.Lock()
	c.script = scr
	c.state = StateSynced
	c.statusMsg = StateSynced.String()
	c.mu.Unlock()
	c.playMu.Unlock()

	logging.Info().
		Int("actions", len(scr.Actions)).
		Int64("duration_ms", scr.DurationMs()).
		Msg("Script loaded for hub playback")
	return nil
}

// Play starts the tick loop from the given media position. A Play while
// already playing is a forced reseek: the previous loop is cancelled and
// fully stopped before the new one starts. The engine context derives from
// ctx, so cancelling it stops the tick loop directly.
func (c *Client) Play(ctx context.Context, atSeconds float64) error {
	c.mu.RLock()
	st, scr := c.state, c.script
	c.mu.RUnlock()
	if !st.connected() {
		return ErrNotConnected
	}
	if scr == nil {
		return ErrNoScript
	}

	c.playMu.Lock()
	defer c.playMu.Unlock()

	c.stopEngine()

	ectx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.engineCancel = cancel
	c.engineDone = done
	c.state = StatePlaying
	c.statusMsg = StatePlaying.String()
	c.mu.Unlock()
	metrics.HubConnectionState.Set(float64(StatePlaying))

	go c.runEngine(ectx, done, scr, int64(atSeconds*1000))
	return nil
}

// Pause deterministically stops the tick loop before returning and sends a
// stop command to every known device - a device must never be left
// mid-motion. The stop is sent even when no script is loaded.
func (c *Client) Pause(_ context.Context) error {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	c.stopEngine()
	c.sendStopAll()

	c.mu.Lock()
	if c.state == StatePlaying {
		c.state = StateSynced
		c.statusMsg = StateSynced.String()
	}
	c.mu.Unlock()
	return nil
}

// Status reports the observable connection state for UI rendering.
func (c *Client) Status() models.SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := models.SyncStatus{
		Connected: c.state.connected(),
		Syncing:   c.script != nil && c.state >= StateSynced,
		Message:   c.statusMsg,
	}
	if c.script != nil {
		st.ScriptActions = len(c.script.Actions)
		st.ScriptDurationMs = c.script.DurationMs()
	}
	return st
}

// Devices returns a snapshot of the known device set, ordered by index for
// deterministic dispatch.
func (c *Client) Devices() []models.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// send encodes one message into a frame and enqueues it on the writer
// channel. Sends are fire-and-forget: when the client is disconnected or the
// buffer is full the frame is dropped, logged, and counted - the next tick
// issues a corrective command.
func (c *Client) send(kind string, payload any) {
	frame, err := encodeFrame(outMessage{kind: kind, payload: payload})
	if err != nil {
		logging.Error().Err(err).Str("kind", kind).Msg("Hub frame encode failed")
		return
	}

	c.mu.RLock()
	ch := c.sendCh
	st := c.state
	c.mu.RUnlock()
	if ch == nil || st == StateDisconnected {
		return
	}

	select {
	case ch <- frame:
	default:
		metrics.CommandSendErrors.Inc()
		logging.Warn().Str("kind", kind).Msg("Hub send buffer full, frame dropped")
	}
}

// sendStopAll issues an idle/stop command for every device known to the hub.
func (c *Client) sendStopAll() {
	c.send(models.HubKindStopAllDevices, models.HubStopAllDevices{ID: c.nextID()})
	metrics.CommandsDispatched.WithLabelValues("stop").Inc()
}

// writePump is the single logical writer for the connection: serializing all
// outgoing sends through it keeps partial protocol frames from interleaving.
// After shutdown is signalled it drains already-enqueued frames so a final
// stop command still reaches the hub.
func (c *Client) writePump(conn *websocket.Conn, sendCh chan []byte, stopCh chan struct{}) {
	defer c.wg.Done()

	write := func(frame []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, frame)
	}

	for {
		select {
		case <-stopCh:
			for {
				select {
				case frame := <-sendCh:
					if err := write(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		case frame := <-sendCh:
			if err := write(frame); err != nil {
				c.mu.RLock()
				closing := c.closing
				c.mu.RUnlock()
				if !closing {
					logging.Error().Err(err).Msg("Hub write failed")
					c.teardown("Connection Lost")
				}
				return
			}
		}
	}
}

// readPump processes the unbounded ordered stream of incoming messages,
// dispatching each by kind. A connection-level read failure or a malformed
// frame forces the client to Disconnected and clears the device set.
func (c *Client) readPump(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closing := c.closing
			disconnected := c.state == StateDisconnected
			c.mu.RUnlock()
			if !closing && !disconnected {
				logging.Error().Err(err).Msg("Hub connection lost")
				c.teardown("Connection Lost")
			}
			return
		}

		msgs, err := decodeFrame(data)
		if err != nil {
			logging.Error().Err(err).Msg("Malformed hub frame")
			c.teardown("Protocol Error")
			return
		}
		for _, m := range msgs {
			c.dispatch(m)
		}
	}
}

// dispatch routes one decoded message. Device events can arrive at any time,
// independent of script state; the device set is always a pure function of
// the most recent add/remove/list messages and stale capability data is
// never merged.
func (c *Client) dispatch(m inMessage) {
	switch m.kind {
	case models.HubKindServerInfo:
		var info models.HubServerInfo
		if err := unmarshalBody(m, &info); err != nil {
			c.protocolFailure(err)
			return
		}
		c.mu.RLock()
		infoCh := c.serverInfoCh
		c.mu.RUnlock()
		if infoCh != nil {
			select {
			case infoCh <- info:
			default:
			}
		}

	case models.HubKindDeviceAdded:
		var added models.HubDeviceAdded
		if err := unmarshalBody(m, &added); err != nil {
			c.protocolFailure(err)
			return
		}
		c.mu.Lock()
		c.devices[added.DeviceIndex] = models.Device{
			Index:        added.DeviceIndex,
			Name:         added.DeviceName,
			Capabilities: added.Capabilities(),
		}
		n := len(c.devices)
		c.mu.Unlock()
		metrics.DevicesKnown.Set(float64(n))
		logging.Info().Str("device", added.DeviceName).Uint32("index", added.DeviceIndex).Msg("Device added")

	case models.HubKindDeviceRemoved:
		var removed models.HubDeviceRemoved
		if err := unmarshalBody(m, &removed); err != nil {
			c.protocolFailure(err)
			return
		}
		c.mu.Lock()
		delete(c.devices, removed.DeviceIndex)
		n := len(c.devices)
		c.mu.Unlock()
		metrics.DevicesKnown.Set(float64(n))
		logging.Info().Uint32("index", removed.DeviceIndex).Msg("Device removed")

	case models.HubKindDeviceList:
		var list models.HubDeviceList
		if err := unmarshalBody(m, &list); err != nil {
			c.protocolFailure(err)
			return
		}
		devices := make(map[uint32]models.Device, len(list.Devices))
		for _, e := range list.Devices {
			devices[e.DeviceIndex] = models.Device{
				Index:        e.DeviceIndex,
				Name:         e.DeviceName,
				Capabilities: e.Capabilities(),
			}
		}
		c.mu.Lock()
		c.devices = devices
		c.mu.Unlock()
		metrics.DevicesKnown.Set(float64(len(devices)))
		logging.Info().Int("devices", len(devices)).Msg("Device list replaced")

	case models.HubKindOk:
		// Command acknowledged; nothing to do.

	case models.HubKindError:
		var hubErr models.HubError
		if err := unmarshalBody(m, &hubErr); err != nil {
			c.protocolFailure(err)
			return
		}
		// A single failed command is non-fatal; the next tick supersedes it.
		metrics.CommandSendErrors.Inc()
		logging.Warn().
			Uint32("id", hubErr.ID).
			Int("code", hubErr.ErrorCode).
			Str("message", hubErr.ErrorMessage).
			Msg("Hub reported command error")

	default:
		logging.Warn().Str("kind", m.kind).Msg("Unknown hub message kind ignored")
	}
}

// protocolFailure handles an unparseable message body: connection-level for
// the local backend.
func (c *Client) protocolFailure(err error) {
	logging.Error().Err(err).Msg("Hub protocol error")
	c.teardown("Protocol Error")
}

// unmarshalBody decodes a message body, wrapping failures as ErrProtocol.
func unmarshalBody(m inMessage, v any) error {
	if err := jsonUnmarshal(m.body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrProtocol, m.kind, err)
	}
	return nil
}

// teardown forces the client to Disconnected regardless of in-flight
// play/pause calls: the engine is cancelled, the device set is cleared, and
// the connection is closed. Safe to call from any goroutine; only the first
// caller acts.
func (c *Client) teardown(statusMsg string) {
	c.mu.Lock()
	if c.state == StateDisconnected && c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	cancel := c.engineCancel
	stopCh := c.stopCh
	c.conn = nil
	c.engineCancel = nil
	c.engineDone = nil
	c.stopCh = nil
	c.sendCh = nil
	c.serverInfoCh = nil
	c.state = StateDisconnected
	c.statusMsg = statusMsg
	c.devices = make(map[uint32]models.Device)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopCh != nil {
		close(stopCh)
	}
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}

	metrics.HubConnectionState.Set(float64(StateDisconnected))
	metrics.DevicesKnown.Set(0)
}

// stopEngine cancels the tick loop and waits for it to exit, so pausing or
// reseeking never leaves two loops racing.
func (c *Client) stopEngine() {
	c.mu.Lock()
	cancel, done := c.engineCancel, c.engineDone
	c.engineCancel, c.engineDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// setState transitions the connection state and mirrors it to metrics.
func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.statusMsg = s.String()
	c.mu.Unlock()
	metrics.HubConnectionState.Set(float64(s))
}

// setStatusMsg updates only the user-visible status string.
func (c *Client) setStatusMsg(msg string) {
	c.mu.Lock()
	c.statusMsg = msg
	c.mu.Unlock()
}
