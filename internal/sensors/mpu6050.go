// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/i2c"

	"github.com/relabs-tech/instrument_panel/internal/imu"
)

// MPU6050 reads an MPU-6050 over I²C. Transactions are serialized so the
// tick loop and control-surface readers can share one device.
type MPU6050 struct {
	mu  sync.Mutex
	dev *i2c.Dev
}

// NewMPU6050 probes the device at addr, checks WHO_AM_I and wakes it with
// the ±2g / ±250°/s ranges.
func NewMPU6050(bus i2c.Bus, addr uint16) (*MPU6050, error) {
	dev := &i2c.Dev{Bus: bus, Addr: addr}

	var id [1]byte
	if err := dev.Tx([]byte{regWhoAmI}, id[:]); err != nil {
		return nil, fmt.Errorf("mpu6050: read WHO_AM_I: %w: %w", ErrIO, err)
	}
	if id[0] != whoAmIVal {
		return nil, fmt.Errorf("mpu6050: wrong device at 0x%02X: WHO_AM_I=0x%02X, expected 0x%02X: %w",
			addr, id[0], whoAmIVal, ErrNotFound)
	}
	log.Printf("mpu6050: device found at 0x%02X, WHO_AM_I=0x%02X", addr, id[0])

	setup := []struct {
		reg, val byte
		what     string
	}{
		{regGyroConfig, 0x00, "gyro range"},
		{regAccelConfig, 0x00, "accel range"},
		{regPwrMgmt1, 0x00, "wake"},
		{regConfig, dlpf44Hz, "low-pass filter"},
	}
	for _, s := range setup {
		if err := dev.Tx([]byte{s.reg, s.val}, nil); err != nil {
			return nil, fmt.Errorf("mpu6050: %s: %w: %w", s.what, ErrIO, err)
		}
	}

	return &MPU6050{dev: dev}, nil
}

// PollRawData reads all six motion channels in one burst.
func (m *MPU6050) PollRawData() (imu.Sample, error) {
	var buf [dataSize]byte
	if err := m.tx([]byte{regAccelXOutH}, buf[:]); err != nil {
		return imu.Sample{}, fmt.Errorf("mpu6050: read data: %w", err)
	}
	return imu.Sample{
		Ax: be16(buf[0:2]),
		Ay: be16(buf[2:4]),
		Az: be16(buf[4:6]),
		// buf[6:8] is TEMP_OUT
		Gx: be16(buf[8:10]),
		Gy: be16(buf[10:12]),
		Gz: be16(buf[12:14]),
	}, nil
}

// PollRawAxis reads a single channel.
func (m *MPU6050) PollRawAxis(axis imu.Axis) (int16, error) {
	if axis < imu.AccelX || axis > imu.GyroZ {
		return 0, fmt.Errorf("mpu6050: invalid axis %d", int(axis))
	}
	var buf [2]byte
	if err := m.tx([]byte{axisRegs[axis]}, buf[:]); err != nil {
		return 0, fmt.Errorf("mpu6050: read %s: %w", axis, err)
	}
	return be16(buf[:]), nil
}

// PollTemperature reads the die temperature in degrees Celsius.
func (m *MPU6050) PollTemperature() (int16, error) {
	var buf [2]byte
	if err := m.tx([]byte{regTempOutH}, buf[:]); err != nil {
		return 0, fmt.Errorf("mpu6050: read temperature: %w", err)
	}
	return TemperatureC(be16(buf[:])), nil
}

// Close detaches the driver; later polls fail with ErrNotFound. The bus
// itself belongs to the caller.
func (m *MPU6050) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dev = nil
	return nil
}

func (m *MPU6050) tx(w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return ErrNotFound
	}
	if err := m.dev.Tx(w, r); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func be16(b []byte) int16 {
	return int16(uint16(b[0])<<8 | uint16(b[1]))
}
