// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package attr exposes the panel as a flat set of named integer
// attributes: one read-only attribute per sensor axis, the die
// temperature, and the read-write active mode index. The MQTT and HTTP
// transports are thin shells around a Surface.
package attr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/instrument_panel/internal/imu"
	"github.com/relabs-tech/instrument_panel/internal/machine"
	"github.com/relabs-tech/instrument_panel/internal/sensors"
)

// Attribute names besides the six axis names.
const (
	Temp = "temp"
	Mode = "mode"
)

var (
	// ErrUnknown is returned for a name that is not an attribute.
	ErrUnknown = errors.New("unknown attribute")
	// ErrInvalid is returned when a written value is not an integer.
	ErrInvalid = errors.New("invalid attribute value")
)

// Surface reads and writes attributes.
type Surface struct {
	m   *machine.Machine
	src sensors.Source
}

// New returns a Surface over the machine and sensor.
func New(m *machine.Machine, src sensors.Source) *Surface {
	return &Surface{m: m, src: src}
}

// Names lists every attribute in a stable order.
func Names() []string {
	names := make([]string, 0, len(imu.Axes)+2)
	for _, a := range imu.Axes {
		names = append(names, a.String())
	}
	return append(names, Temp, Mode)
}

// Writable reports whether name accepts writes.
func Writable(name string) bool {
	return name == Mode
}

// Read returns the current value of name.
func (s *Surface) Read(name string) (int, error) {
	switch name {
	case Mode:
		idx, _, _ := s.m.Current()
		return idx, nil
	case Temp:
		c, err := s.src.PollTemperature()
		if err != nil {
			return 0, fmt.Errorf("attr: %s: %w", name, err)
		}
		return int(c), nil
	}
	axis, ok := imu.ParseAxis(name)
	if !ok {
		return 0, fmt.Errorf("attr: %q: %w", name, ErrUnknown)
	}
	v, err := s.src.PollRawAxis(axis)
	if err != nil {
		return 0, fmt.Errorf("attr: %s: %w", name, err)
	}
	return int(v), nil
}

// Write sets name to value. Only the mode attribute is writable; writing
// the index of the already active mode succeeds without a switch.
func (s *Surface) Write(name string, value int) error {
	if !Writable(name) {
		if !known(name) {
			return fmt.Errorf("attr: %q: %w", name, ErrUnknown)
		}
		return fmt.Errorf("attr: %s is read-only: %w", name, machine.ErrPermissionDenied)
	}
	err := s.m.SwitchIndex(value)
	if errors.Is(err, machine.ErrNoOp) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("attr: %s=%d: %w", name, value, err)
	}
	return nil
}

// WriteString parses text the way a sysfs store would (surrounding
// whitespace ignored) and writes it.
func (s *Surface) WriteString(name, text string) error {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("attr: %s=%q: %w", name, text, ErrInvalid)
	}
	return s.Write(name, v)
}

// Snapshot reads every attribute using a single burst read for the axes.
func (s *Surface) Snapshot() (map[string]int, error) {
	sample, err := s.src.PollRawData()
	if err != nil {
		return nil, fmt.Errorf("attr: snapshot: %w", err)
	}
	temp, err := s.src.PollTemperature()
	if err != nil {
		return nil, fmt.Errorf("attr: snapshot: %w", err)
	}
	out := make(map[string]int, len(imu.Axes)+2)
	for _, a := range imu.Axes {
		out[a.String()] = int(sample.Get(a))
	}
	out[Temp] = int(temp)
	idx, _, _ := s.m.Current()
	out[Mode] = idx
	return out, nil
}

func known(name string) bool {
	if name == Temp || name == Mode {
		return true
	}
	_, ok := imu.ParseAxis(name)
	return ok
}
