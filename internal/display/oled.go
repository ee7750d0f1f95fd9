// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"log"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Device is the part of *ssd1306.Dev the OLED sink uses.
type Device interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// OLED keeps a 1-bit frame buffer and pushes it to the panel after every
// change.
type OLED struct {
	dev Device
	img *image1bit.VerticalLSB
}

// OpenSSD1306 initializes a 128x64 SSD1306 on bus.
func OpenSSD1306(bus i2c.Bus) (*OLED, error) {
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("ssd1306: init: %w: %w", ErrIO, err)
	}
	log.Printf("display: ssd1306 initialized (%dx%d)", opts.W, opts.H)
	return NewOLED(dev), nil
}

// NewOLED wraps an already initialized device.
func NewOLED(dev Device) *OLED {
	return &OLED{
		dev: dev,
		img: image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height)),
	}
}

// Clear blanks the whole panel.
func (o *OLED) Clear() error {
	for i := range o.img.Pix {
		o.img.Pix[i] = 0
	}
	return o.flush()
}

// Print draws text with its top edge on page row. The text's bounding box
// is blanked first so shorter values do not leave stale glyphs behind.
func (o *OLED) Print(col, row int, f Font, text string) error {
	face := f.Face()
	m := face.Metrics()
	top := row * PageSize

	area := image.Rect(col, top, col+font.MeasureString(face, text).Ceil(), top+m.Height.Ceil())
	draw.Draw(o.img, area.Intersect(o.img.Bounds()), &image.Uniform{image1bit.Off}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  o.img,
		Src:  &image.Uniform{image1bit.On},
		Face: face,
		Dot:  fixed.P(col, top+m.Ascent.Ceil()),
	}
	drawer.DrawString(text)

	return o.flush()
}

// Close turns the panel off.
func (o *OLED) Close() error {
	if err := o.dev.Halt(); err != nil {
		return fmt.Errorf("ssd1306: halt: %w: %w", ErrIO, err)
	}
	return nil
}

func (o *OLED) flush() error {
	if err := o.dev.Draw(o.dev.Bounds(), o.img, image.Point{}); err != nil {
		return fmt.Errorf("ssd1306: draw: %w: %w", ErrIO, err)
	}
	return nil
}
