// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package button

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSwitcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSwitcher) Advance() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.calls, f.err
}

func (f *fakeSwitcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDebouncer_EdgesWithinCooldownAreDropped(t *testing.T) {
	sw := &fakeSwitcher{}
	d := NewDebouncer(sw, 500*time.Millisecond)
	t0 := time.Unix(1000, 0)

	if ok, _, _ := d.Edge(t0); !ok {
		t.Fatalf("first edge rejected")
	}
	if ok, _, _ := d.Edge(t0.Add(100 * time.Millisecond)); ok {
		t.Fatalf("edge 100ms later accepted")
	}
	if sw.count() != 1 {
		t.Fatalf("Advance calls=%d want 1", sw.count())
	}
}

func TestDebouncer_CooldownIsStrict(t *testing.T) {
	sw := &fakeSwitcher{}
	d := NewDebouncer(sw, 500*time.Millisecond)
	t0 := time.Unix(1000, 0)

	d.Edge(t0)
	if ok, _, _ := d.Edge(t0.Add(500 * time.Millisecond)); ok {
		t.Fatalf("edge exactly at cooldown accepted")
	}
	if ok, idx, _ := d.Edge(t0.Add(501 * time.Millisecond)); !ok || idx != 2 {
		t.Fatalf("edge after cooldown: ok=%v idx=%d", ok, idx)
	}
	// Rejected edges do not extend the window.
	if ok, _, _ := d.Edge(t0.Add(1002 * time.Millisecond)); !ok {
		t.Fatalf("edge after second cooldown rejected")
	}
	if sw.count() != 3 {
		t.Fatalf("Advance calls=%d want 3", sw.count())
	}
}

func TestDebouncer_SwitchErrorStillConsumesEdge(t *testing.T) {
	busy := errors.New("busy")
	sw := &fakeSwitcher{err: busy}
	d := NewDebouncer(sw, 0)
	t0 := time.Unix(1000, 0)

	ok, _, err := d.Edge(t0)
	if !ok || !errors.Is(err, busy) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if ok, _, _ := d.Edge(t0.Add(DefaultCooldown / 2)); ok {
		t.Fatalf("edge within default cooldown accepted")
	}
}

func TestDebouncer_ConcurrentEdges(t *testing.T) {
	sw := &fakeSwitcher{}
	d := NewDebouncer(sw, time.Hour)
	t0 := time.Unix(1000, 0)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Edge(t0.Add(time.Duration(i) * time.Millisecond))
		}()
	}
	wg.Wait()
	if sw.count() != 1 {
		t.Fatalf("Advance calls=%d want 1", sw.count())
	}
}
