// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package button

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// edgePoll bounds how long Close waits for the watch loop to notice.
const edgePoll = 100 * time.Millisecond

// openPeriph watches a pin from periph's registry. host.Init must have
// run already.
func openPeriph(name string, onEdge EdgeFunc) (io.Closer, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("button: gpio %q not found", name)
	}
	return watchPin(pin, onEdge)
}

func watchPin(pin gpio.PinIO, onEdge EdgeFunc) (io.Closer, error) {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("button: configure %s: %w", pin, err)
	}
	b := &periphButton{
		pin:  pin,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.run(onEdge)
	log.Printf("button: watching %s", pin)
	return b, nil
}

type periphButton struct {
	pin      gpio.PinIO
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (b *periphButton) run(onEdge EdgeFunc) {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		if b.pin.WaitForEdge(edgePoll) {
			onEdge(time.Now())
		}
	}
}

func (b *periphButton) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
	return b.pin.Halt()
}
