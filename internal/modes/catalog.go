// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package modes defines the panel's display modes, the ordered catalog
// they live in, and the Runner that performs each mode's screen work.
package modes

import (
	"errors"
	"fmt"
	"time"
)

// Kind selects the prepare/cycle behavior of a mode.
type Kind int

const (
	KindInclinometer Kind = iota
	KindAttitude
	KindRaw
	KindCalibrated
	KindTemperature
	KindScan
	kindCount
)

var kindNames = [kindCount]string{
	KindInclinometer: "inclinometer",
	KindAttitude:     "attitude",
	KindRaw:          "raw",
	KindCalibrated:   "calibrated",
	KindTemperature:  "temperature",
	KindScan:         "scan",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Mode is an immutable catalog entry. Modes are compared by pointer.
type Mode struct {
	Kind          Kind
	Name          string
	CycleInterval time.Duration
	// Hidden modes are skipped by rotation and only reachable by index.
	Hidden bool
}

func (m *Mode) String() string {
	if m == nil {
		return "<none>"
	}
	return m.Name
}

// Catalog is the fixed, ordered list of modes built at startup.
type Catalog struct {
	modes   []*Mode
	visible int
}

// NewCatalog validates and freezes the given modes.
func NewCatalog(modes ...*Mode) (*Catalog, error) {
	if len(modes) == 0 {
		return nil, errors.New("modes: catalog is empty")
	}
	c := &Catalog{modes: make([]*Mode, len(modes))}
	seen := make(map[string]bool, len(modes))
	for i, m := range modes {
		switch {
		case m == nil:
			return nil, fmt.Errorf("modes: entry %d is nil", i)
		case m.Name == "":
			return nil, fmt.Errorf("modes: entry %d has no name", i)
		case seen[m.Name]:
			return nil, fmt.Errorf("modes: duplicate mode %q", m.Name)
		case !m.Kind.Valid():
			return nil, fmt.Errorf("modes: %q: %w", m.Name, ErrUnknownKind)
		case m.CycleInterval <= 0:
			return nil, fmt.Errorf("modes: %q: cycle interval must be > 0", m.Name)
		}
		seen[m.Name] = true
		if !m.Hidden {
			c.visible++
		}
		c.modes[i] = m
	}
	if c.visible == 0 {
		return nil, errors.New("modes: catalog has no visible mode")
	}
	return c, nil
}

// DefaultCatalog returns the panel's stock screens. The scan mode is
// hidden and kept last.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		&Mode{Kind: KindInclinometer, Name: "inclinometer", CycleInterval: 20 * time.Millisecond},
		&Mode{Kind: KindAttitude, Name: "attitude", CycleInterval: 20 * time.Millisecond},
		&Mode{Kind: KindRaw, Name: "raw", CycleInterval: 20 * time.Millisecond},
		&Mode{Kind: KindCalibrated, Name: "calibrated", CycleInterval: 20 * time.Millisecond},
		&Mode{Kind: KindTemperature, Name: "temperature", CycleInterval: time.Second},
		&Mode{Kind: KindScan, Name: "scan", CycleInterval: 100 * time.Millisecond, Hidden: true},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of modes, hidden ones included.
func (c *Catalog) Len() int {
	return len(c.modes)
}

// VisibleCount returns the number of modes that take part in rotation.
func (c *Catalog) VisibleCount() int {
	return c.visible
}

// At returns the mode at index i.
func (c *Catalog) At(i int) (*Mode, bool) {
	if i < 0 || i >= len(c.modes) {
		return nil, false
	}
	return c.modes[i], true
}

// Index returns the position of m, or -1 if m is not in the catalog.
func (c *Catalog) Index(m *Mode) int {
	for i, e := range c.modes {
		if e == m {
			return i
		}
	}
	return -1
}

// Lookup finds a mode by name.
func (c *Catalog) Lookup(name string) (int, *Mode, bool) {
	for i, e := range c.modes {
		if e.Name == name {
			return i, e, true
		}
	}
	return -1, nil, false
}

// Modes returns a copy of the ordered entries.
func (c *Catalog) Modes() []*Mode {
	out := make([]*Mode, len(c.modes))
	copy(out, c.modes)
	return out
}

// NextVisible returns the first visible index after i, wrapping around.
// An out-of-range i starts the search from the beginning.
func (c *Catalog) NextVisible(i int) int {
	n := len(c.modes)
	if i < 0 || i >= n {
		i = -1
	}
	for step := 1; step <= n; step++ {
		j := (i + step) % n
		if !c.modes[j].Hidden {
			return j
		}
	}
	// unreachable: NewCatalog guarantees a visible mode
	return 0
}
