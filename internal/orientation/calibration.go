// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"errors"
	"math"

	"github.com/relabs-tech/instrument_panel/internal/imu"
)

// OneG is 1 g in raw counts at the ±2g accelerometer range.
const OneG = 16384

// EstimateOffsets derives calibration offsets from samples taken with the
// device level and at rest: gyro axes should read 0 and the accelerometer
// (0, 0, oneG). The result is meant for the calibration section of the
// configuration file.
func EstimateOffsets(samples []imu.Sample, oneG int16) (imu.Offsets, error) {
	if len(samples) == 0 {
		return imu.Offsets{}, errors.New("orientation: no samples to calibrate from")
	}
	var sum [len(imu.Axes)]int64
	for _, s := range samples {
		for i, a := range imu.Axes {
			sum[i] += int64(s.Get(a))
		}
	}
	n := int64(len(samples))
	mean := func(a imu.Axis) int64 {
		v := sum[a]
		if v >= 0 {
			return (v + n/2) / n
		}
		return (v - n/2) / n
	}
	return imu.Offsets{
		Accel: imu.Triplet{
			X: clamp16(-mean(imu.AccelX)),
			Y: clamp16(-mean(imu.AccelY)),
			Z: clamp16(int64(oneG) - mean(imu.AccelZ)),
		},
		Gyro: imu.Triplet{
			X: clamp16(-mean(imu.GyroX)),
			Y: clamp16(-mean(imu.GyroY)),
			Z: clamp16(-mean(imu.GyroZ)),
		},
	}, nil
}

func clamp16(v int64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
