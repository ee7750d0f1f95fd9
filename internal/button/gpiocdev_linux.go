// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build linux

package button

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "instrument-panel-button"

// openGPIOCDev requests the named line as a pulled-up input with falling
// edge events. The event handler runs on gpiocdev's watcher goroutine.
func openGPIOCDev(chipName, lineName string, onEdge EdgeFunc) (io.Closer, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("button: open %s: %w", chipName, err)
	}
	offset, err := chip.FindLine(lineName)
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("button: line %q on %s: %w", lineName, chipName, err)
	}
	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
			onEdge(time.Now())
		}),
	)
	if err != nil {
		_ = chip.Close()
		return nil, fmt.Errorf("button: request %s/%s: %w", chipName, lineName, err)
	}
	log.Printf("button: watching %s line %s (offset %d)", chipName, lineName, offset)
	return &cdevButton{chip: chip, line: line}, nil
}

type cdevButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (b *cdevButton) Close() error {
	if b == nil || b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	if b.chip != nil {
		_ = b.chip.Close()
		b.chip = nil
	}
	return err
}
