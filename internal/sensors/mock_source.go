// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/instrument_panel/internal/imu"
)

// oneG is the ±2g full-scale reading of 1 g.
const oneG = 16384

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock sensor that generates a slowly rocking
// gravity vector, for running the panel without hardware.
func NewMockSource() Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

// Rocking motion of the mock: amplitude in rad and angular frequency in
// rad/s. Peak rates (amplitude*frequency) stay near 10°/s, well under the
// default gyro gating threshold, so the smoothing filter stays engaged.
const (
	pitchAmp  = 0.35
	pitchFreq = 0.5
	rollAmp   = 0.25
	rollFreq  = 0.7

	// 131 LSB per °/s at ±250°/s.
	gyroLSBPerRad = 131 * 180 / math.Pi
)

func (m *mockSource) PollRawData() (imu.Sample, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	pitch := pitchAmp * math.Sin(elapsed*pitchFreq)
	roll := rollAmp * math.Cos(elapsed*rollFreq)

	return imu.Sample{
		Ax: int16(oneG * math.Sin(pitch)),
		Ay: int16(oneG * math.Sin(roll) * math.Cos(pitch)),
		Az: int16(oneG * math.Cos(roll) * math.Cos(pitch)),
		Gx: int16(gyroLSBPerRad * rollAmp * rollFreq * -math.Sin(elapsed*rollFreq)),
		Gy: int16(gyroLSBPerRad * pitchAmp * pitchFreq * math.Cos(elapsed*pitchFreq)),
		Gz: 0,
	}, nil
}

func (m *mockSource) PollRawAxis(axis imu.Axis) (int16, error) {
	s, err := m.PollRawData()
	if err != nil {
		return 0, err
	}
	return s.Get(axis), nil
}

func (m *mockSource) PollTemperature() (int16, error) {
	elapsed := m.now().Sub(m.start).Seconds()
	// Around 25 °C: raw = 25*340 - 12420.
	raw := int16(-3920 + 340*math.Sin(elapsed/60))
	return TemperatureC(raw), nil
}
