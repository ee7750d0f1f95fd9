package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/relabs-tech/instrument_panel/internal/attr"
	"github.com/relabs-tech/instrument_panel/internal/display"
	"github.com/relabs-tech/instrument_panel/internal/imu"
	"github.com/relabs-tech/instrument_panel/internal/machine"
	"github.com/relabs-tech/instrument_panel/internal/modes"
	"github.com/relabs-tech/instrument_panel/internal/orientation"
)

type fakeSource struct {
	mu     sync.Mutex
	sample imu.Sample
	temp   int16
	err    error
}

func (f *fakeSource) PollRawData() (imu.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sample, f.err
}

func (f *fakeSource) PollRawAxis(a imu.Axis) (int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sample.Get(a), f.err
}

func (f *fakeSource) PollTemperature() (int16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.temp, f.err
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeSink struct {
	mu     sync.Mutex
	clears int
	texts  []string
}

func (f *fakeSink) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeSink) Print(_, _ int, _ display.Font, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSink) printed(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.texts {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// recorder collects Close calls from several fakes in order.
type recorder struct {
	mu     sync.Mutex
	closed []string
}

func (r *recorder) closer(name string) *namedCloser {
	return &namedCloser{name: name, r: r}
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

type namedCloser struct {
	name string
	r    *recorder
}

func (c *namedCloser) Close() error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.closed = append(c.r.closed, c.name)
	return nil
}

// newTestControls builds the control stack over src with the first mode
// active and prepared.
func newTestControls(t *testing.T, src *fakeSource) controls {
	t.Helper()
	catalog := modes.DefaultCatalog()
	runner := modes.NewRunner(src, &fakeSink{}, orientation.NewProcessor(imu.Offsets{}, 0))
	m := machine.New(catalog, runner)
	if err := m.SwitchIndex(0); err != nil {
		t.Fatalf("SwitchIndex(0): %v", err)
	}
	if _, err := m.Process(context.Background()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	return controls{
		surface: attr.New(m, src),
		machine: m,
		runner:  runner,
		source:  src,
	}
}
