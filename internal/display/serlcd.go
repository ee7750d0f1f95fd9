// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerLCD geometry and command bytes (SparkFun SerLCD 20x4 firmware).
const (
	serLCDCols = 20
	serLCDRows = 4

	serLCDSetting  = 0x7C // '|' prefix for settings commands
	serLCDClear    = 0x2D // '-' after the settings prefix
	serLCDCommand  = 0xFE // HD44780 pass-through prefix
	serLCDSetDDRAM = 0x80
)

// Character cell size used to map pixel positions onto the text grid.
const (
	serLCDCellW = Width / 16 // 8 px per character on a 128 px wide layout
	serLCDCellH = PageCount / serLCDRows
)

// DDRAM start address of each line on a 20x4 HD44780.
var serLCDLineAddr = [serLCDRows]byte{0x00, 0x40, 0x14, 0x54}

// SerLCD renders the panel's screens on a serial character LCD. Fonts are
// ignored and positions are scaled down to the character grid.
type SerLCD struct {
	port io.ReadWriteCloser
}

// OpenSerLCD opens the serial port the LCD is attached to.
func OpenSerLCD(portName string, baudRate uint) (*SerLCD, error) {
	port, err := serial.Open(serial.OpenOptions{
		PortName:        portName,
		BaudRate:        baudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("serlcd: open %s: %w: %w", portName, ErrIO, err)
	}
	log.Printf("display: serlcd opened on %s at %d baud", portName, baudRate)
	return NewSerLCD(port), nil
}

// NewSerLCD wraps an already opened port.
func NewSerLCD(port io.ReadWriteCloser) *SerLCD {
	return &SerLCD{port: port}
}

func (s *SerLCD) Clear() error {
	return s.write([]byte{serLCDSetting, serLCDClear})
}

func (s *SerLCD) Print(col, row int, _ Font, text string) error {
	line := row / serLCDCellH
	c := col / serLCDCellW
	if line < 0 || line >= serLCDRows || c < 0 || c >= serLCDCols {
		return nil
	}
	if max := serLCDCols - c; len(text) > max {
		text = text[:max]
	}
	buf := make([]byte, 0, 2+len(text))
	buf = append(buf, serLCDCommand, serLCDSetDDRAM|(serLCDLineAddr[line]+byte(c)))
	buf = append(buf, text...)
	return s.write(buf)
}

func (s *SerLCD) Close() error {
	return s.port.Close()
}

func (s *SerLCD) write(b []byte) error {
	if _, err := s.port.Write(b); err != nil {
		return fmt.Errorf("serlcd: write: %w: %w", ErrIO, err)
	}
	return nil
}
