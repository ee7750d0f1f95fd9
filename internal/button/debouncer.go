// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package button turns the panel's push button into mode rotations.
package button

import (
	"sync"
	"time"
)

// DefaultCooldown is the minimum gap between two accepted presses.
const DefaultCooldown = 500 * time.Millisecond

// Switcher advances the panel to its next visible mode.
type Switcher interface {
	Advance() (int, error)
}

// Debouncer drops edges that arrive within the cooldown of the last
// accepted one. Edge may be called from any goroutine.
type Debouncer struct {
	sw       Switcher
	cooldown time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewDebouncer returns a Debouncer that forwards accepted edges to sw.
// A non-positive cooldown selects DefaultCooldown.
func NewDebouncer(sw Switcher, cooldown time.Duration) *Debouncer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Debouncer{sw: sw, cooldown: cooldown}
}

// Edge handles one button edge seen at now. It reports whether the edge
// passed the cooldown, plus the index and error of the resulting switch.
func (d *Debouncer) Edge(now time.Time) (accepted bool, index int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.last.IsZero() && now.Sub(d.last) <= d.cooldown {
		return false, 0, nil
	}
	d.last = now
	index, err = d.sw.Advance()
	return true, index, err
}
