// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package button

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Edge source backends.
const (
	BackendGPIOCDev = "gpiocdev"
	BackendPeriph   = "periph"
	BackendNone     = "none"
)

// ErrUnsupported is returned when a backend cannot run on this platform.
var ErrUnsupported = errors.New("button backend unsupported on this platform")

// Options selects and locates the button line.
type Options struct {
	Backend string
	// Chip is the GPIO character device, e.g. "gpiochip0" (gpiocdev only).
	Chip string
	// Line is the line name, e.g. "GPIO26".
	Line string
}

// EdgeFunc receives the time of each falling edge.
type EdgeFunc func(at time.Time)

var (
	openGPIOCDevFn = openGPIOCDev
	openPeriphFn   = openPeriph
)

// Open starts watching the button and calls onEdge for each press. The
// returned Closer stops the watch and releases the line.
func Open(opts Options, onEdge EdgeFunc) (io.Closer, error) {
	switch opts.Backend {
	case BackendGPIOCDev:
		return openGPIOCDevFn(opts.Chip, opts.Line, onEdge)
	case BackendPeriph:
		return openPeriphFn(opts.Line, onEdge)
	case BackendNone, "":
		return nopCloser{}, nil
	default:
		return nil, fmt.Errorf("button: unknown backend %q", opts.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
