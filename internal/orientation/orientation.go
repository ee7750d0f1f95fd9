// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation turns raw 6-axis samples into tilt and attitude
// readings using integer-only math: per-axis calibration, an exponential
// smoothing filter on the accelerometer and the fxpt arctangent.
package orientation

import (
	"github.com/relabs-tech/instrument_panel/internal/fxpt"
	"github.com/relabs-tech/instrument_panel/internal/imu"
)

// Filter weights: 10% new sample, 90% history.
const (
	NewWeight     = 1000
	HistoryWeight = 9000
)

// Tilt is the inclinometer reading in whole degrees.
type Tilt struct {
	X int `json:"tilt_x"`
	Y int `json:"tilt_y"`
}

// Attitude is the pitch/roll reading in whole degrees.
type Attitude struct {
	Pitch int `json:"pitch"`
	Roll  int `json:"roll"`
}

// Calibrate adds the offsets to every axis. Sums wrap around like the
// sensor's native int16 registers.
func Calibrate(raw imu.Sample, off imu.Offsets) imu.Sample {
	return imu.Sample{
		Ax: raw.Ax + off.Accel.X,
		Ay: raw.Ay + off.Accel.Y,
		Az: raw.Az + off.Accel.Z,
		Gx: raw.Gx + off.Gyro.X,
		Gy: raw.Gy + off.Gyro.Y,
		Gz: raw.Gz + off.Gyro.Z,
	}
}

// Smooth blends a new value into the previous smoothed value. The result
// is rounded to nearest with ties away from zero and is also the next
// call's prev.
func Smooth(raw, prev int16) int16 {
	n := int32(raw)*NewWeight + int32(prev)*HistoryWeight
	return int16(divRoundClosest(n, NewWeight+HistoryWeight))
}

func divRoundClosest(n, d int32) int32 {
	if (n < 0) == (d < 0) {
		return (n + d/2) / d
	}
	return (n - d/2) / d
}

// FilterState holds the previous smoothed accelerometer values.
type FilterState struct {
	Accel  [3]int16
	primed bool
}

// Processor applies calibration and smoothing and derives angles. It is
// not safe for concurrent use; the tick loop owns it.
type Processor struct {
	offsets       imu.Offsets
	gyroThreshold int32
	state         FilterState
}

// NewProcessor returns a Processor. A gyroThreshold of 0 disables gyro
// gating.
func NewProcessor(offsets imu.Offsets, gyroThreshold int) *Processor {
	return &Processor{offsets: offsets, gyroThreshold: int32(gyroThreshold)}
}

// Offsets returns the calibration offsets.
func (p *Processor) Offsets() imu.Offsets {
	return p.offsets
}

// State returns a copy of the filter state.
func (p *Processor) State() FilterState {
	return p.state
}

// Calibrate applies the processor's offsets.
func (p *Processor) Calibrate(raw imu.Sample) imu.Sample {
	return Calibrate(raw, p.offsets)
}

// Filter calibrates raw and smooths its accelerometer channels. Gyro
// channels pass through calibrated but unfiltered. The first sample seeds
// the filter, and any gyro channel above the threshold resets the filter
// to the current sample so fast rotation is tracked without lag.
func (p *Processor) Filter(raw imu.Sample) imu.Sample {
	s := p.Calibrate(raw)
	accel := [3]int16{s.Ax, s.Ay, s.Az}

	if !p.state.primed || p.rotating(s) {
		p.state.Accel = accel
		p.state.primed = true
		return s
	}

	for i := range accel {
		p.state.Accel[i] = Smooth(accel[i], p.state.Accel[i])
	}
	s.Ax, s.Ay, s.Az = p.state.Accel[0], p.state.Accel[1], p.state.Accel[2]
	return s
}

func (p *Processor) rotating(s imu.Sample) bool {
	if p.gyroThreshold <= 0 {
		return false
	}
	for _, g := range [3]int16{s.Gx, s.Gy, s.Gz} {
		if abs32(int32(g)) > p.gyroThreshold {
			return true
		}
	}
	return false
}

// Tilt filters raw and returns the inclinometer angles.
func (p *Processor) Tilt(raw imu.Sample) Tilt {
	return TiltOf(p.Filter(raw))
}

// Attitude filters raw and returns pitch and roll.
func (p *Processor) Attitude(raw imu.Sample) Attitude {
	return AttitudeOf(p.Filter(raw))
}

// TiltOf computes the inclinometer angles of an already processed sample:
// Y is the angle of (ax, ay), X the angle of (az, ax).
func TiltOf(s imu.Sample) Tilt {
	return Tilt{
		X: fxpt.SignedDegrees(fxpt.Atan2(int32(s.Ax), int32(s.Az))),
		Y: fxpt.SignedDegrees(fxpt.Atan2(int32(s.Ay), int32(s.Ax))),
	}
}

// AttitudeOf computes pitch and roll from the gravity vector.
func AttitudeOf(s imu.Sample) Attitude {
	return Attitude{
		Pitch: fxpt.SignedDegrees(fxpt.Atan2(-int32(s.Ax), int32(s.Az))),
		Roll:  fxpt.SignedDegrees(fxpt.Atan2(int32(s.Ay), int32(s.Az))),
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
