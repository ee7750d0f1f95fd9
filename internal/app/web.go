// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/instrument_panel/internal/attr"
	"github.com/relabs-tech/instrument_panel/internal/config"
	"github.com/relabs-tech/instrument_panel/internal/machine"
	"github.com/relabs-tech/instrument_panel/internal/modes"
	"github.com/relabs-tech/instrument_panel/internal/sensors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // panel is served on the local network only
	},
}

const (
	wsWriteTimeout = 5 * time.Second
	// maxAttrBody bounds an attribute write; longer bodies are refused
	// rather than truncated.
	maxAttrBody = 64
)

// controls is what the HTTP and websocket handlers operate on.
type controls struct {
	surface *attr.Surface
	machine *machine.Machine
	runner  *modes.Runner
	source  sensors.Source
}

type webServer struct {
	c        controls
	interval time.Duration
	srv      *http.Server

	quit chan struct{}
	// sockets tracks live websocket handlers; Shutdown does not wait for
	// hijacked connections. mu orders sockets.Add against Close.
	mu      sync.Mutex
	closing bool
	sockets sync.WaitGroup
}

func newWebServer(c controls, interval time.Duration) *webServer {
	return &webServer{c: c, interval: interval, quit: make(chan struct{})}
}

// startWeb binds cfg.Listen and serves the control surface until Close.
func startWeb(cfg config.WebConfig, c controls) (io.Closer, error) {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}
	ws := newWebServer(c, cfg.StreamInterval)
	ws.srv = &http.Server{Handler: ws.handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := ws.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("web: serve: %v", err)
		}
	}()
	log.Printf("web: listening on %s", ln.Addr())
	return ws, nil
}

func (ws *webServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/attrs", ws.handleAttrs)
	mux.HandleFunc("GET /api/attrs/{name}", ws.handleAttrRead)
	mux.HandleFunc("PUT /api/attrs/{name}", ws.handleAttrWrite)
	mux.HandleFunc("GET /api/modes", ws.handleModes)
	mux.HandleFunc("GET /ws/telemetry", ws.handleTelemetryWS)
	mux.HandleFunc("GET /ws/calibrate", ws.handleCalibrationWS)
	return mux
}

// Close stops the HTTP server and disconnects websocket clients.
func (ws *webServer) Close() error {
	ws.mu.Lock()
	if !ws.closing {
		ws.closing = true
		close(ws.quit)
	}
	ws.mu.Unlock()

	var err error
	if ws.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = ws.srv.Shutdown(ctx)
	}
	ws.sockets.Wait()
	log.Println("web: stopped")
	return err
}

type attrValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (ws *webServer) handleAttrs(w http.ResponseWriter, r *http.Request) {
	snap, err := ws.c.surface.Snapshot()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (ws *webServer) handleAttrRead(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	v, err := ws.c.surface.Read(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attrValue{Name: name, Value: v})
}

// handleAttrWrite takes the new value as the plain-text request body,
// like a sysfs store.
func (ws *webServer) handleAttrWrite(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAttrBody+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxAttrBody {
		log.Printf("web: write %s rejected: body longer than %d bytes", name, maxAttrBody)
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: fmt.Sprintf("value longer than %d bytes", maxAttrBody)})
		return
	}
	if err := ws.c.surface.WriteString(name, string(body)); err != nil {
		log.Printf("web: write %s=%q rejected: %v", name, body, err)
		writeError(w, err)
		return
	}
	v, _ := ws.c.surface.Read(name)
	writeJSON(w, http.StatusOK, attrValue{Name: name, Value: v})
}

type modeInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Hidden  bool   `json:"hidden"`
	CycleMS int64  `json:"cycle_ms"`
	Active  bool   `json:"active"`
	Pending bool   `json:"pending,omitempty"`
}

func (ws *webServer) handleModes(w http.ResponseWriter, r *http.Request) {
	_, active, switching := ws.c.machine.Current()
	var out []modeInfo
	for i, m := range ws.c.machine.Catalog().Modes() {
		out = append(out, modeInfo{
			Index:   i,
			Name:    m.Name,
			Kind:    m.Kind.String(),
			Hidden:  m.Hidden,
			CycleMS: m.CycleInterval.Milliseconds(),
			Active:  m == active,
			Pending: m == active && switching,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// track registers a websocket handler with Close. It reports false once
// Close has started; the caller must then refuse the connection.
func (ws *webServer) track() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closing {
		return false
	}
	ws.sockets.Add(1)
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, attr.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, machine.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, machine.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, attr.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, sensors.ErrIO), errors.Is(err, sensors.ErrNotFound):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// WebSocket frames on /ws/telemetry.
type telemetryFrame struct {
	Type      string         `json:"type"` // telemetry, ack, error
	Mode      int            `json:"mode"`
	ModeName  string         `json:"mode_name,omitempty"`
	Switching bool           `json:"switching"`
	Reading   *modes.Reading `json:"reading,omitempty"`
	Message   string         `json:"message,omitempty"`
}

type telemetryCommand struct {
	Action string `json:"action"` // set_mode
	Index  int    `json:"index"`
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.WriteJSON(v)
}

// handleTelemetryWS streams the current mode and latest reading every
// stream interval and accepts set_mode commands from the client.
func (ws *webServer) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	if !ws.track() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer ws.sockets.Done()
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var cmd telemetryCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			var reply telemetryFrame
			switch cmd.Action {
			case "set_mode":
				if err := ws.c.surface.Write(attr.Mode, cmd.Index); err != nil {
					reply = telemetryFrame{Type: "error", Message: modeErrorText(err)}
				} else {
					reply = ws.frame("ack")
				}
			default:
				reply = telemetryFrame{Type: "error", Message: "unknown action " + cmd.Action}
			}
			if err := conn.send(reply); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(ws.interval)
	defer ticker.Stop()
	for {
		if err := conn.send(ws.frame("telemetry")); err != nil {
			return
		}
		select {
		case <-ws.quit:
			return
		case <-readerDone:
			return
		case <-ticker.C:
		}
	}
}

func (ws *webServer) frame(typ string) telemetryFrame {
	idx, mode, switching := ws.c.machine.Current()
	f := telemetryFrame{Type: typ, Mode: idx, ModeName: mode.String(), Switching: switching}
	if rd := ws.c.runner.Last(); rd.Mode != "" {
		f.Reading = &rd
	}
	return f
}
