// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"errors"
	"image"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type fakeDevice struct {
	draws  int
	halted bool
	err    error
}

func (f *fakeDevice) Bounds() image.Rectangle { return image.Rect(0, 0, Width, Height) }

func (f *fakeDevice) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.draws++
	return f.err
}

func (f *fakeDevice) Halt() error {
	f.halted = true
	return f.err
}

func litIn(img *image1bit.VerticalLSB, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.At(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestOLED_PrintDrawsInsidePage(t *testing.T) {
	dev := &fakeDevice{}
	o := NewOLED(dev)

	if err := o.Print(16, 2, FontMedium, "88"); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if dev.draws != 1 {
		t.Fatalf("draws=%d want 1", dev.draws)
	}
	if n := litIn(o.img, image.Rect(16, 16, 32, 32)); n == 0 {
		t.Fatalf("no pixels lit in text box")
	}
	if n := litIn(o.img, image.Rect(0, 0, Width, 16)); n != 0 {
		t.Fatalf("%d pixels lit above the text row", n)
	}
}

func TestOLED_PrintBlanksPreviousText(t *testing.T) {
	o := NewOLED(&fakeDevice{})
	if err := o.Print(0, 0, FontMedium, "8888"); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if err := o.Print(0, 0, FontMedium, "    "); err != nil {
		t.Fatalf("Print: %v", err)
	}
	if n := litIn(o.img, image.Rect(0, 0, 32, 16)); n != 0 {
		t.Fatalf("%d stale pixels left", n)
	}
}

func TestOLED_Clear(t *testing.T) {
	dev := &fakeDevice{}
	o := NewOLED(dev)
	_ = o.Print(0, 0, FontBold, "X")
	if err := o.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := litIn(o.img, o.img.Bounds()); n != 0 {
		t.Fatalf("%d pixels lit after Clear", n)
	}
	if dev.draws != 2 {
		t.Fatalf("draws=%d want 2", dev.draws)
	}
}

func TestOLED_DeviceErrorIsIO(t *testing.T) {
	o := NewOLED(&fakeDevice{err: errors.New("nack")})
	if err := o.Clear(); !errors.Is(err, ErrIO) {
		t.Fatalf("Clear err=%v want ErrIO", err)
	}
	if err := o.Close(); !errors.Is(err, ErrIO) {
		t.Fatalf("Close err=%v want ErrIO", err)
	}
}
