// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders text screens on the panel's display.
//
// Positions follow the SSD1306 layout: col is a pixel column and row is an
// 8-pixel page, so a 128x64 panel has rows 0 through 7.
package display

import "errors"

// ErrIO is returned when the display transport fails.
var ErrIO = errors.New("display i/o error")

// Sink defines the interface the panel modes draw through.
type Sink interface {
	Clear() error
	Print(col, row int, f Font, text string) error
}

// Panel geometry in pixels.
const (
	Width     = 128
	Height    = 64
	PageSize  = 8
	PageCount = Height / PageSize
)
