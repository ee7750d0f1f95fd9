package fxpt

import (
	"math"
	"testing"
)

func TestQ15Mul_Rounding(t *testing.T) {
	cases := []struct {
		j, k int32
		want int32
	}{
		{j: 0x4000, k: 1, want: 0}, // exact tie: no bump
		{j: 0x4001, k: 1, want: 1},
		{j: 0x3FFF, k: 1, want: 0},
		{j: 16384, k: 16384, want: 8192},
		{j: -16384, k: 16384, want: -8192},
		{j: 32767, k: 32767, want: 32766},
		{j: 0, k: 12345, want: 0},
	}
	for _, tc := range cases {
		if got := Q15Mul(tc.j, tc.k); got != tc.want {
			t.Fatalf("Q15Mul(%d,%d)=%d want %d", tc.j, tc.k, got, tc.want)
		}
	}
}

func TestQ15Div(t *testing.T) {
	if got := Q15Div(1, 2); got != 16384 {
		t.Fatalf("Q15Div(1,2)=%d want 16384", got)
	}
	if got := Q15Div(-1, 2); got != -16384 {
		t.Fatalf("Q15Div(-1,2)=%d want -16384", got)
	}
	// Truncates toward zero.
	if got := Q15Div(1, 3); got != 10922 {
		t.Fatalf("Q15Div(1,3)=%d want 10922", got)
	}
	if got := Q15Div(-1, 3); got != -10922 {
		t.Fatalf("Q15Div(-1,3)=%d want -10922", got)
	}
}

func TestAtan2_Diagonal(t *testing.T) {
	if got := Atan2(0, 0); got != 0 {
		t.Fatalf("Atan2(0,0)=%d want 0", got)
	}
	for _, k := range []int32{1, 7, 100, 16384, 32767} {
		if got := Atan2(k, k); got != 8192 {
			t.Fatalf("Atan2(%d,%d)=%d want 8192", k, k, got)
		}
		if got := Atan2(-k, -k); got != 40960 {
			t.Fatalf("Atan2(%d,%d)=%d want 40960", -k, -k, got)
		}
	}
	if got := Atan2(-32768, -32768); got != 40960 {
		t.Fatalf("Atan2(min,min)=%d want 40960", got)
	}
}

func TestAtan2_KnownValues(t *testing.T) {
	cases := []struct {
		y, x int32
		want uint16
	}{
		{y: 0, x: 1, want: 0},
		{y: 1, x: 0, want: 16384},
		{y: 0, x: -1, want: 32768},
		{y: -1, x: 0, want: 49152},
		{y: 100, x: -100, want: 24576},
		{y: -5, x: 5, want: 57344},
		{y: 3, x: 4, want: 6678},
		{y: 4, x: 3, want: 9706},
		{y: -3, x: 4, want: 58858},
		{y: 3, x: -4, want: 26090},
		{y: -3, x: -4, want: 39446},
		{y: 1000, x: -1, want: 16395},
		{y: 12000, x: -7000, want: 21854},
		{y: -32768, x: 32767, want: 57344},
		{y: 32767, x: -32768, want: 24576},
	}
	for _, tc := range cases {
		if got := Atan2(tc.y, tc.x); got != tc.want {
			t.Fatalf("Atan2(%d,%d)=%d want %d", tc.y, tc.x, got, tc.want)
		}
	}
}

func TestAtan2_ErrorBound(t *testing.T) {
	const maxErrDeg = 0.25
	worst := 0.0
	for y := int32(-32768); y <= 32767; y += 97 {
		for x := int32(-32768); x <= 32767; x += 89 {
			if x == y {
				continue
			}
			got := float64(Atan2(y, x)) * 360 / 65536
			want := math.Atan2(float64(y), float64(x)) * 180 / math.Pi
			if want < 0 {
				want += 360
			}
			diff := math.Abs(got - want)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > worst {
				worst = diff
			}
			if diff > maxErrDeg {
				t.Fatalf("Atan2(%d,%d)=%.4f° want %.4f° (err %.4f°)", y, x, got, want, diff)
			}
		}
	}
	t.Logf("worst error %.4f°", worst)
}

func TestDegrees(t *testing.T) {
	cases := []struct {
		code     uint16
		unsigned int
		signed   int
	}{
		{code: 0, unsigned: 0, signed: 0},
		{code: 8192, unsigned: 45, signed: 45},
		{code: 32768, unsigned: 180, signed: -180},
		{code: 40960, unsigned: 225, signed: -135},
		{code: 58858, unsigned: 323, signed: -36},
		{code: 65535, unsigned: 359, signed: 0},
	}
	for _, tc := range cases {
		if got := Degrees(tc.code); got != tc.unsigned {
			t.Fatalf("Degrees(%d)=%d want %d", tc.code, got, tc.unsigned)
		}
		if got := SignedDegrees(tc.code); got != tc.signed {
			t.Fatalf("SignedDegrees(%d)=%d want %d", tc.code, got, tc.signed)
		}
	}
}
