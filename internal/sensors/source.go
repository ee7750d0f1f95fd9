// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"

	"github.com/relabs-tech/instrument_panel/internal/imu"
)

var (
	// ErrNotFound is returned when the sensor is absent or already released.
	ErrNotFound = errors.New("sensor not found")
	// ErrIO is returned when a bus transaction with the sensor fails.
	ErrIO = errors.New("sensor i/o error")
)

// Source defines the interface for polling the inertial sensor.
type Source interface {
	PollRawData() (imu.Sample, error)
	PollRawAxis(axis imu.Axis) (int16, error)
	// PollTemperature returns whole degrees Celsius.
	PollTemperature() (int16, error)
}

// TemperatureC converts a raw temperature register value to degrees
// Celsius: round((raw + 12420) / 340), ties away from zero.
func TemperatureC(raw int16) int16 {
	n := int32(raw) + 12420
	if n >= 0 {
		return int16((n + 170) / 340)
	}
	return int16((n - 170) / 340)
}
