// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/instrument_panel/internal/imu"
	"github.com/relabs-tech/instrument_panel/internal/orientation"
)

const (
	defaultCalibrationSamples = 200
	maxCalibrationSamples     = 5000
)

// calibrationSampleGap spaces the samples of a calibration run.
var calibrationSampleGap = 5 * time.Millisecond

// calibrationRequest is sent by the client on /ws/calibrate.
type calibrationRequest struct {
	Action  string `json:"action"` // start, cancel
	Samples int    `json:"samples,omitempty"`
}

type calibrationResponse struct {
	Type     string       `json:"type"` // progress, complete, error
	Progress float64      `json:"progress,omitempty"`
	Offsets  *imu.Offsets `json:"offsets,omitempty"`
	// YAML is the calibration section ready to paste into the config file.
	YAML    string `json:"yaml,omitempty"`
	Message string `json:"message,omitempty"`
}

// handleCalibrationWS runs rest calibrations: with the device level and
// still, the client sends {"action":"start"} and receives progress frames
// followed by the suggested offsets. Offsets are not applied to the
// running panel; they take effect from the config file on restart.
func (ws *webServer) handleCalibrationWS(w http.ResponseWriter, r *http.Request) {
	if !ws.track() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer ws.sockets.Done()
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("calibration: websocket upgrade error: %v", err)
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		// Closing the connection unblocks ReadJSON below.
		select {
		case <-ws.quit:
			conn.Close()
		case <-done:
		}
	}()

	for {
		var req calibrationRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		switch req.Action {
		case "start":
			if err := ws.runCalibration(conn, req.Samples); err != nil {
				log.Printf("calibration: %v", err)
				if serr := conn.send(calibrationResponse{Type: "error", Message: err.Error()}); serr != nil {
					return
				}
			}
		case "cancel":
			log.Printf("calibration: cancelled by user")
			return
		default:
			if err := conn.send(calibrationResponse{Type: "error", Message: "unknown action " + req.Action}); err != nil {
				return
			}
		}
	}
}

func (ws *webServer) runCalibration(conn *wsConn, n int) error {
	if n <= 0 {
		n = defaultCalibrationSamples
	}
	if n > maxCalibrationSamples {
		return fmt.Errorf("samples must be <= %d", maxCalibrationSamples)
	}
	log.Printf("calibration: collecting %d samples", n)

	samples := make([]imu.Sample, 0, n)
	step := max(n/10, 1)
	for i := range n {
		select {
		case <-ws.quit:
			return fmt.Errorf("server shutting down")
		default:
		}
		s, err := ws.c.source.PollRawData()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		samples = append(samples, s)
		if (i+1)%step == 0 {
			if err := conn.send(calibrationResponse{Type: "progress", Progress: float64(i+1) * 100 / float64(n)}); err != nil {
				return err
			}
		}
		if calibrationSampleGap > 0 {
			time.Sleep(calibrationSampleGap)
		}
	}

	off, err := orientation.EstimateOffsets(samples, orientation.OneG)
	if err != nil {
		return err
	}
	doc, err := yaml.Marshal(struct {
		Calibration imu.Offsets `yaml:"calibration"`
	}{off})
	if err != nil {
		return fmt.Errorf("marshal offsets: %w", err)
	}
	log.Printf("calibration: complete, accel=%+v gyro=%+v", off.Accel, off.Gyro)
	return conn.send(calibrationResponse{Type: "complete", Offsets: &off, YAML: string(doc)})
}
