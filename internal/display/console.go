// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console keeps a text rendition of the screen, one line per page, and
// writes the whole screen to w whenever it changes. It stands in for the
// OLED when running without hardware.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	lines [PageCount][]byte
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	c := &Console{w: w}
	c.blank()
	return c
}

func (c *Console) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blank()
	return c.render()
}

func (c *Console) Print(col, row int, _ Font, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if row < 0 || row >= PageCount {
		return nil
	}
	line := c.lines[row]
	for i := 0; i < len(text); i++ {
		x := col/serLCDCellW + i
		if x < 0 || x >= len(line) {
			break
		}
		line[x] = text[i]
	}
	return c.render()
}

// Screen returns the current text lines with trailing blanks trimmed.
func (c *Console) Screen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, PageCount)
	for i, l := range c.lines {
		out[i] = strings.TrimRight(string(l), " ")
	}
	return out
}

func (c *Console) blank() {
	for i := range c.lines {
		c.lines[i] = []byte(strings.Repeat(" ", Width/serLCDCellW))
	}
}

func (c *Console) render() error {
	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", Width/serLCDCellW) + "+\n")
	for _, l := range c.lines {
		b.WriteString("|")
		b.Write(l)
		b.WriteString("|\n")
	}
	b.WriteString("+" + strings.Repeat("-", Width/serLCDCellW) + "+\n")
	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return fmt.Errorf("console: write: %w: %w", ErrIO, err)
	}
	return nil
}
