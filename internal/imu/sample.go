// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "fmt"

// Sample represents a single raw 6-axis reading.
type Sample struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Axis selects a single sensor channel.
type Axis int

const (
	AccelX Axis = iota
	AccelY
	AccelZ
	GyroX
	GyroY
	GyroZ
)

// Axes lists every channel in register order.
var Axes = [...]Axis{AccelX, AccelY, AccelZ, GyroX, GyroY, GyroZ}

var axisNames = [...]string{"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"}

func (a Axis) String() string {
	if a < AccelX || a > GyroZ {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// ParseAxis maps an attribute name such as "gyro_y" back to its Axis.
func ParseAxis(name string) (Axis, bool) {
	for i, n := range axisNames {
		if n == name {
			return Axis(i), true
		}
	}
	return 0, false
}

// Get returns the value of one channel.
func (s Sample) Get(a Axis) int16 {
	switch a {
	case AccelX:
		return s.Ax
	case AccelY:
		return s.Ay
	case AccelZ:
		return s.Az
	case GyroX:
		return s.Gx
	case GyroY:
		return s.Gy
	case GyroZ:
		return s.Gz
	}
	return 0
}

// Triplet is one offset per x/y/z axis.
type Triplet struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
	Z int16 `json:"z" yaml:"z"`
}

// Offsets are the per-axis calibration corrections added to raw samples.
type Offsets struct {
	Accel Triplet `json:"accel" yaml:"accel"`
	Gyro  Triplet `json:"gyro" yaml:"gyro"`
}
