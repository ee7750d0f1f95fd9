// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !linux

package button

import (
	"fmt"
	"io"
)

func openGPIOCDev(chipName, lineName string, _ EdgeFunc) (io.Closer, error) {
	return nil, fmt.Errorf("button: %s/%s: %w", chipName, lineName, ErrUnsupported)
}
