// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fxpt implements the 16-bit fixed-point math used by the angle
// pipeline: Q15 multiply/divide and a four-quadrant arctangent that
// returns turn units.
//
// Turn units map one full rotation onto the unsigned 16-bit range:
// 0x0000 is 0 rad, 0x4000 is pi/2, 0x8000 is pi and 0xFFFF is just short
// of 2*pi. Because only the direction of (x, y) matters, the inputs can be
// in any signed 16-bit fixed-point format.
package fxpt

// Pi is half a turn in turn units.
const Pi = 0x8000

// Minimax coefficients of atan(r) ~ r*(k2 - k1*|r|) in the Q15 domain.
const (
	k1 = 2847
	k2 = 11039
)

// Octant boundaries in turn units.
const (
	eighthTurn       = 8192
	quarterTurn      = 16384
	halfTurn         = 32768
	fiveEighthsTurn  = 40960
	threeQuarterTurn = 49152
)

// Q15Mul multiplies two Q15 values with unbiased rounding: 0x4000 is added
// before the shift unless the low 15 bits are exactly 0x4000.
func Q15Mul(j, k int32) int32 {
	p := j * k
	if p&0x7FFF == 0x4000 {
		return p >> 15
	}
	return (p + 0x4000) >> 15
}

// Q15Div divides two Q15 values without saturation. The result is only
// meaningful when |n| < |d|; callers guarantee that through octant
// selection.
func Q15Div(n, d int32) int32 {
	return (n << 15) / d
}

// Atan2 returns the angle of the vector (x, y) measured from the positive
// x axis, in turn units.
func Atan2(y, x int32) uint16 {
	// y/x == 1 is not representable in Q15.
	if x == y {
		switch {
		case y > 0:
			return eighthTurn
		case y < 0:
			return fiveEighthsTurn
		default:
			return 0
		}
	}

	if abs(x) > abs(y) {
		// octants 1, 4, 5, 8
		unrotated := arctan(Q15Div(y, x))
		if x > 0 {
			return uint16(unrotated)
		}
		return uint16(halfTurn + unrotated)
	}

	// octants 2, 3, 6, 7
	unrotated := arctan(Q15Div(x, y))
	if y > 0 {
		return uint16(quarterTurn - unrotated)
	}
	return uint16(threeQuarterTurn - unrotated)
}

// arctan approximates atan(r)/(2*pi) in turn units for r in [-1, 1].
func arctan(r int32) int32 {
	correction := Q15Mul(k1, abs(r))
	return Q15Mul(k2-correction, r)
}

// Degrees converts turn units to whole degrees in [0, 360), truncating.
func Degrees(code uint16) int {
	return int(code) * 180 / Pi
}

// SignedDegrees converts turn units to whole degrees in [-180, 180),
// truncating toward zero. Angles past half a turn read as negative.
func SignedDegrees(code uint16) int {
	return int(int16(code)) * 180 / Pi
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
