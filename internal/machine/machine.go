// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package machine holds the panel's run state: which mode is active, its
// catalog index, and whether the mode still has to be prepared.
//
// Switch requests (button edges, control-surface writes) only flip state
// under the mutex. The tick loop calls Process, which snapshots the state
// under the same mutex and then runs the mode's prepare or cycle with the
// lock released, so a slow display never blocks a switch request.
package machine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/instrument_panel/internal/modes"
)

var (
	// ErrBusy is returned when a switch is requested before the previous
	// one was consumed by Process. Transient.
	ErrBusy = errors.New("mode switch pending")
	// ErrNoOp is returned when the requested mode is already active.
	ErrNoOp = errors.New("mode already active")
	// ErrFault reports a broken invariant: no active mode, a mode that is
	// not in the catalog, or a mode kind without a screen.
	ErrFault = errors.New("state machine fault")
	// ErrPermissionDenied is returned for an out-of-range index write.
	ErrPermissionDenied = errors.New("permission denied")
)

// Handler performs the screen work of a mode.
type Handler interface {
	Prepare(ctx context.Context, m *modes.Mode) error
	Cycle(ctx context.Context, m *modes.Mode) error
}

// Machine is the mode state machine. The zero value is not usable; build
// one with New.
type Machine struct {
	catalog *modes.Catalog
	handler Handler

	// procMu keeps Process calls from overlapping.
	procMu sync.Mutex

	mu        sync.Mutex
	index     int
	active    *modes.Mode
	switching bool
}

// New returns an idle machine. Nothing is active until the first switch.
func New(catalog *modes.Catalog, handler Handler) *Machine {
	return &Machine{catalog: catalog, handler: handler}
}

// Catalog returns the catalog the machine switches between.
func (m *Machine) Catalog() *modes.Catalog {
	return m.catalog
}

// SwitchMode makes target the active mode; it is prepared on the next
// Process call. Re-requesting the active (or pending) mode is ErrNoOp,
// any other request while a switch is pending is ErrBusy.
func (m *Machine) SwitchMode(target *modes.Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switchLocked(target)
}

// SwitchIndex switches to the catalog entry at i, hidden entries included.
// Out-of-range indexes are rejected without touching the state.
func (m *Machine) SwitchIndex(i int) error {
	target, ok := m.catalog.At(i)
	if !ok {
		return fmt.Errorf("%w: mode index %d not in [0,%d)", ErrPermissionDenied, i, m.catalog.Len())
	}
	return m.SwitchMode(target)
}

// Advance switches to the next visible mode and returns its index. The
// index is computed and applied in one critical section.
func (m *Machine) Advance() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.catalog.NextVisible(m.index)
	target, _ := m.catalog.At(next)
	if err := m.switchLocked(target); err != nil {
		return next, err
	}
	return next, nil
}

func (m *Machine) switchLocked(target *modes.Mode) error {
	if target == nil {
		return fmt.Errorf("%w: nil mode", ErrFault)
	}
	if target == m.active {
		return ErrNoOp
	}
	if m.switching {
		return ErrBusy
	}
	idx := m.catalog.Index(target)
	if idx < 0 {
		return fmt.Errorf("%w: mode %q not in catalog", ErrFault, target.Name)
	}
	m.active = target
	m.index = idx
	m.switching = true
	return nil
}

// Current returns the active index and mode and whether the mode is still
// waiting to be prepared. mode is nil before the first switch.
func (m *Machine) Current() (index int, mode *modes.Mode, switching bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index, m.active, m.switching
}

// Process runs one tick: prepare if a switch is pending, cycle otherwise.
// It returns the active mode's cycle interval so the caller can schedule
// the next tick, together with any error from the mode. Errors wrapping
// ErrFault mean the machine cannot continue.
func (m *Machine) Process(ctx context.Context) (time.Duration, error) {
	if m == nil || m.catalog == nil || m.handler == nil {
		return 0, fmt.Errorf("%w: machine not initialized", ErrFault)
	}
	m.procMu.Lock()
	defer m.procMu.Unlock()

	m.mu.Lock()
	mode, switching := m.active, m.switching
	m.mu.Unlock()

	if mode == nil {
		return 0, fmt.Errorf("%w: no active mode", ErrFault)
	}

	var err error
	if switching {
		err = m.handler.Prepare(ctx, mode)
		// No switch can land while switching is set, so mode is still
		// the active one here.
		m.mu.Lock()
		m.switching = false
		m.mu.Unlock()
	} else {
		err = m.handler.Cycle(ctx, mode)
	}

	if errors.Is(err, modes.ErrUnknownKind) {
		err = fmt.Errorf("%w: %w", ErrFault, err)
	}
	return mode.CycleInterval, err
}
