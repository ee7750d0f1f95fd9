// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package modes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/instrument_panel/internal/display"
	"github.com/relabs-tech/instrument_panel/internal/imu"
	"github.com/relabs-tech/instrument_panel/internal/orientation"
	"github.com/relabs-tech/instrument_panel/internal/sensors"
)

// ErrUnknownKind is returned for a mode whose Kind has no screen.
var ErrUnknownKind = errors.New("unknown mode kind")

// Screen layout, in pixel columns and 8-pixel pages.
const (
	labelCol = 16
	valueCol = labelCol + 60
	bigCol   = 55
)

var sampleLabels = [...]string{
	"Accel X :",
	"Accel Y :",
	"Accel Z :",
	"Gyro X  :",
	"Gyro Y  :",
	"Gyro Z  :",
}

// Reading is the outcome of the latest cycle, for telemetry.
type Reading struct {
	Mode     string                `json:"mode"`
	At       time.Time             `json:"at"`
	Sample   *imu.Sample           `json:"sample,omitempty"`
	Tilt     *orientation.Tilt     `json:"tilt,omitempty"`
	Attitude *orientation.Attitude `json:"attitude,omitempty"`
	TempC    *int16                `json:"temp_c,omitempty"`
	Axis     string                `json:"axis,omitempty"`
	Value    *int16                `json:"value,omitempty"`
}

// Runner performs prepare and cycle for every mode kind. Prepare and Cycle
// must be called from a single goroutine (the tick loop); Last is safe
// from any goroutine.
type Runner struct {
	src  sensors.Source
	sink display.Sink
	proc *orientation.Processor
	now  func() time.Time

	scanAxis imu.Axis

	mu   sync.Mutex
	last Reading
}

// NewRunner wires a Runner to its collaborators.
func NewRunner(src sensors.Source, sink display.Sink, proc *orientation.Processor) *Runner {
	return &Runner{src: src, sink: sink, proc: proc, now: time.Now}
}

// Last returns the latest reading.
func (r *Runner) Last() Reading {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Prepare draws the static part of m's screen.
func (r *Runner) Prepare(ctx context.Context, m *Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	switch m.Kind {
	case KindInclinometer:
		err = r.prepareBig("INCLINOMETER", "Tilt Y:", "Tilt X:")
	case KindAttitude:
		err = r.prepareBig("ATTITUDE", "Pitch:", "Roll:")
	case KindRaw:
		err = r.prepareTable("Sensor Raw Data")
	case KindCalibrated:
		err = r.prepareTable("Calibrated Data")
	case KindTemperature:
		err = r.prepareTemperature()
	case KindScan:
		r.scanAxis = imu.AccelX
		err = r.prepareScan()
	default:
		return fmt.Errorf("%s: %w", m.Name, ErrUnknownKind)
	}
	if err != nil {
		return fmt.Errorf("%s: prepare: %w", m.Name, err)
	}
	return nil
}

// Cycle polls the sensor and refreshes the values on m's screen.
func (r *Runner) Cycle(ctx context.Context, m *Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	switch m.Kind {
	case KindInclinometer:
		err = r.cycleInclinometer(m)
	case KindAttitude:
		err = r.cycleAttitude(m)
	case KindRaw:
		err = r.cycleTable(m, false)
	case KindCalibrated:
		err = r.cycleTable(m, true)
	case KindTemperature:
		err = r.cycleTemperature(m)
	case KindScan:
		err = r.cycleScan(m)
	default:
		return fmt.Errorf("%s: %w", m.Name, ErrUnknownKind)
	}
	if err != nil {
		return fmt.Errorf("%s: cycle: %w", m.Name, err)
	}
	return nil
}

func (r *Runner) prepareBig(title, top, bottom string) error {
	if err := r.sink.Clear(); err != nil {
		return err
	}
	if err := r.sink.Print(0, 0, display.FontBold, title); err != nil {
		return err
	}
	if err := r.sink.Print(5, 2, display.FontMedium, top); err != nil {
		return err
	}
	return r.sink.Print(5, 5, display.FontMedium, bottom)
}

func (r *Runner) printBig(top, bottom int) error {
	if err := r.sink.Print(bigCol, 2, display.FontLarge, fmt.Sprintf("%4d", top)); err != nil {
		return err
	}
	return r.sink.Print(bigCol, 5, display.FontLarge, fmt.Sprintf("%4d", bottom))
}

func (r *Runner) cycleInclinometer(m *Mode) error {
	raw, err := r.src.PollRawData()
	if err != nil {
		return err
	}
	tilt := r.proc.Tilt(raw)
	r.record(Reading{Mode: m.Name, Sample: &raw, Tilt: &tilt})
	return r.printBig(tilt.Y, tilt.X)
}

func (r *Runner) cycleAttitude(m *Mode) error {
	raw, err := r.src.PollRawData()
	if err != nil {
		return err
	}
	att := r.proc.Attitude(raw)
	r.record(Reading{Mode: m.Name, Sample: &raw, Attitude: &att})
	return r.printBig(att.Pitch, att.Roll)
}

func (r *Runner) prepareTable(title string) error {
	if err := r.sink.Clear(); err != nil {
		return err
	}
	if err := r.sink.Print(4, 0, display.FontMedium, title); err != nil {
		return err
	}
	for i, label := range sampleLabels {
		if err := r.sink.Print(labelCol, 2+i, display.FontSmall, label); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) cycleTable(m *Mode, calibrated bool) error {
	s, err := r.src.PollRawData()
	if err != nil {
		return err
	}
	if calibrated {
		s = r.proc.Calibrate(s)
	}
	r.record(Reading{Mode: m.Name, Sample: &s})
	for i, a := range imu.Axes {
		if err := r.sink.Print(valueCol, 2+i, display.FontSmall, fmt.Sprintf("%6d", s.Get(a))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) prepareTemperature() error {
	if err := r.sink.Clear(); err != nil {
		return err
	}
	if err := r.sink.Print(0, 0, display.FontBold, "TEMPERATURE"); err != nil {
		return err
	}
	if err := r.sink.Print(5, 3, display.FontMedium, "Die:"); err != nil {
		return err
	}
	return r.sink.Print(labelCol, 7, display.FontSmall, "degrees Celsius")
}

func (r *Runner) cycleTemperature(m *Mode) error {
	c, err := r.src.PollTemperature()
	if err != nil {
		return err
	}
	r.record(Reading{Mode: m.Name, TempC: &c})
	return r.sink.Print(bigCol, 3, display.FontLarge, fmt.Sprintf("%4d", c))
}

func (r *Runner) prepareScan() error {
	if err := r.sink.Clear(); err != nil {
		return err
	}
	return r.sink.Print(0, 0, display.FontBold, "AXIS SCAN")
}

// cycleScan reads one axis per tick, walking all six in order.
func (r *Runner) cycleScan(m *Mode) error {
	axis := r.scanAxis
	r.scanAxis = (axis + 1) % imu.Axis(len(imu.Axes))

	v, err := r.src.PollRawAxis(axis)
	if err != nil {
		return err
	}
	r.record(Reading{Mode: m.Name, Axis: axis.String(), Value: &v})
	return r.sink.Print(labelCol, 2+int(axis), display.FontSmall, fmt.Sprintf("%-8s%6d", axis, v))
}

func (r *Runner) record(rd Reading) {
	rd.At = r.now()
	r.mu.Lock()
	r.last = rd
	r.mu.Unlock()
}
