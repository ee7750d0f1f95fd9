// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/instrument_panel/internal/attr"
	"github.com/relabs-tech/instrument_panel/internal/button"
	"github.com/relabs-tech/instrument_panel/internal/config"
	"github.com/relabs-tech/instrument_panel/internal/display"
	"github.com/relabs-tech/instrument_panel/internal/machine"
	"github.com/relabs-tech/instrument_panel/internal/modes"
	"github.com/relabs-tech/instrument_panel/internal/orientation"
	"github.com/relabs-tech/instrument_panel/internal/sensors"
)

// ErrResourceUnavailable is returned by Start when a device, the button
// line or a control-surface transport cannot be acquired. Everything
// acquired before the failure has been released by then.
var ErrResourceUnavailable = errors.New("resource unavailable")

// Hardware and transport constructors, swapped out by tests.
var (
	hostInitFn = func() error {
		_, err := host.Init()
		return err
	}
	openBusFn     = i2creg.Open
	openSensorFn  = openSensor
	openDisplayFn = openDisplay
	openButtonFn  = button.Open
	startMQTTFn   = startMQTT
	startWebFn    = startWeb
)

// Panel owns every resource of a running instrument panel and the tick
// loop that drives the mode state machine.
type Panel struct {
	cfg     config.Config
	machine *machine.Machine
	runner  *modes.Runner
	surface *attr.Surface
	source  sensors.Source

	// resources in acquisition order; released in reverse
	resources []resource

	cancel    context.CancelFunc
	done      chan struct{}
	fault     error
	closeOnce sync.Once
	closeErr  error
}

type resource struct {
	name string
	c    io.Closer
}

// Start acquires the hardware and transports described by cfg, selects
// the initial mode and starts the tick loop. The first tick runs after
// cfg.InitDelay().
func Start(cfg config.Config) (*Panel, error) {
	p := &Panel{cfg: cfg, done: make(chan struct{})}
	if err := p.start(); err != nil {
		if rerr := p.release(); rerr != nil {
			log.Printf("panel: release after failed start: %v", rerr)
		}
		return nil, err
	}
	return p, nil
}

func (p *Panel) start() error {
	cfg := p.cfg
	needBus := cfg.Sensor.Backend == config.SensorMPU6050 || cfg.Display.Backend == config.DisplaySSD1306
	if needBus || cfg.Button.Backend == config.ButtonPeriph {
		if err := hostInitFn(); err != nil {
			return fmt.Errorf("%w: periph host init: %w", ErrResourceUnavailable, err)
		}
	}

	var bus i2c.Bus
	if needBus {
		bc, err := openBusFn(cfg.I2C.Bus)
		if err != nil {
			return fmt.Errorf("%w: i2c bus %q: %w", ErrResourceUnavailable, cfg.I2C.Bus, err)
		}
		p.acquire("i2c bus", bc)
		bus = bc
		log.Printf("panel: i2c bus %s opened", bc)
	}

	src, srcCloser, err := openSensorFn(cfg.Sensor, bus)
	if err != nil {
		return fmt.Errorf("%w: sensor: %w", ErrResourceUnavailable, err)
	}
	p.acquire("sensor", srcCloser)
	p.source = src

	sink, sinkCloser, err := openDisplayFn(cfg.Display, bus)
	if err != nil {
		return fmt.Errorf("%w: display: %w", ErrResourceUnavailable, err)
	}
	p.acquire("display", sinkCloser)

	catalog := modes.DefaultCatalog()
	proc := orientation.NewProcessor(cfg.Calibration, cfg.GyroThreshold())
	p.runner = modes.NewRunner(src, sink, proc)
	p.machine = machine.New(catalog, p.runner)
	p.surface = attr.New(p.machine, src)

	_, initial, ok := catalog.Lookup(cfg.Panel.InitialMode)
	if !ok {
		return fmt.Errorf("panel.initial_mode %q is not a mode", cfg.Panel.InitialMode)
	}
	if err := p.machine.SwitchMode(initial); err != nil {
		return fmt.Errorf("panel: initial mode: %w", err)
	}

	if cfg.MQTT.Enable {
		c, err := startMQTTFn(cfg.MQTT, p.surface, p.runner)
		if err != nil {
			return fmt.Errorf("%w: mqtt: %w", ErrResourceUnavailable, err)
		}
		p.acquire("mqtt", c)
	}

	if cfg.Web.Enable {
		c, err := startWebFn(cfg.Web, p.controls())
		if err != nil {
			return fmt.Errorf("%w: web: %w", ErrResourceUnavailable, err)
		}
		p.acquire("web", c)
	}

	deb := button.NewDebouncer(p.machine, cfg.Cooldown())
	btn, err := openButtonFn(button.Options{
		Backend: cfg.Button.Backend,
		Chip:    cfg.Button.Chip,
		Line:    cfg.Button.Line,
	}, func(at time.Time) {
		ok, idx, err := deb.Edge(at)
		switch {
		case !ok:
		case err != nil:
			log.Printf("panel: button switch to %d: %v", idx, err)
		default:
			log.Printf("panel: button switched to mode %d", idx)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: button: %w", ErrResourceUnavailable, err)
	}
	p.acquire("button", btn)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)

	log.Printf("panel: started in %s mode (sensor=%s display=%s button=%s)",
		initial.Name, cfg.Sensor.Backend, cfg.Display.Backend, cfg.Button.Backend)
	return nil
}

// Machine returns the panel's state machine.
func (p *Panel) Machine() *machine.Machine { return p.machine }

// Surface returns the panel's attribute surface.
func (p *Panel) Surface() *attr.Surface { return p.surface }

// Done is closed when the tick loop exits, either through Close or
// because of a fault.
func (p *Panel) Done() <-chan struct{} { return p.done }

// Err returns the fault that stopped the tick loop, if any. Only valid
// after Done is closed.
func (p *Panel) Err() error { return p.fault }

// Close stops the tick loop, waits for an in-flight tick and releases
// every resource in reverse acquisition order.
func (p *Panel) Close() error {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
		p.closeErr = p.release()
		log.Println("panel: stopped")
	})
	return p.closeErr
}

func (p *Panel) acquire(name string, c io.Closer) {
	if c == nil {
		return
	}
	p.resources = append(p.resources, resource{name: name, c: c})
}

func (p *Panel) release() error {
	var errs []error
	for i := len(p.resources) - 1; i >= 0; i-- {
		r := p.resources[i]
		if err := r.c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	p.resources = nil
	return errors.Join(errs...)
}

// run is the tick loop. Each tick runs to completion before the timer is
// re-armed with the interval of the mode that was processed.
func (p *Panel) run(ctx context.Context) {
	defer close(p.done)

	timer := time.NewTimer(p.cfg.InitDelay())
	defer timer.Stop()

	var (
		lastErr string
		failed  int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next, err := p.machine.Process(ctx)
		switch {
		case err == nil:
			if failed > 0 {
				log.Printf("panel: recovered after %d failed ticks", failed)
				failed, lastErr = 0, ""
			}
		case errors.Is(err, machine.ErrFault):
			log.Printf("panel: %v; refresh stopped", err)
			p.fault = err
			return
		case ctx.Err() != nil:
			return
		default:
			failed++
			// Log each distinct failure once instead of every tick.
			if msg := err.Error(); msg != lastErr {
				log.Printf("panel: tick: %v", err)
				lastErr = msg
			}
		}
		timer.Reset(next)
	}
}

func (p *Panel) controls() controls {
	return controls{
		surface: p.surface,
		machine: p.machine,
		runner:  p.runner,
		source:  p.source,
	}
}

// openSensor builds the configured sensor source. The returned closer may
// be nil when there is nothing to release.
func openSensor(cfg config.SensorConfig, bus i2c.Bus) (sensors.Source, io.Closer, error) {
	switch cfg.Backend {
	case config.SensorMock:
		log.Println("panel: using mock sensor source")
		return sensors.NewMockSource(), nil, nil
	case config.SensorMPU6050:
		if bus == nil {
			return nil, nil, errors.New("mpu6050 needs an i2c bus")
		}
		m, err := sensors.NewMPU6050(bus, cfg.Address)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	}
	return nil, nil, fmt.Errorf("unknown sensor backend %q", cfg.Backend)
}

// openDisplay builds the configured display sink.
func openDisplay(cfg config.DisplayConfig, bus i2c.Bus) (display.Sink, io.Closer, error) {
	switch cfg.Backend {
	case config.DisplayConsole:
		return display.NewConsole(os.Stdout), nil, nil
	case config.DisplaySerLCD:
		s, err := display.OpenSerLCD(cfg.SerialPort, cfg.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DisplaySSD1306:
		if bus == nil {
			return nil, nil, errors.New("ssd1306 needs an i2c bus")
		}
		o, err := display.OpenSSD1306(bus)
		if err != nil {
			return nil, nil, err
		}
		return o, o, nil
	}
	return nil, nil, fmt.Errorf("unknown display backend %q", cfg.Backend)
}
