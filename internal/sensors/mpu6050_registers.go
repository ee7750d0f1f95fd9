// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import "github.com/relabs-tech/instrument_panel/internal/imu"

// MPU-6050 register map (subset used by the panel).
const (
	regConfig      = 0x1A // CONFIG (DLPF)
	regGyroConfig  = 0x1B // GYRO_CONFIG: FS_SEL bits 4:3, 0=±250°/s
	regAccelConfig = 0x1C // ACCEL_CONFIG: AFS_SEL bits 4:3, 0=±2g
	regAccelXOutH  = 0x3B
	regAccelYOutH  = 0x3D
	regAccelZOutH  = 0x3F
	regTempOutH    = 0x41
	regGyroXOutH   = 0x43
	regGyroYOutH   = 0x45
	regGyroZOutH   = 0x47
	regPwrMgmt1    = 0x6B // PWR_MGMT_1: 0 wakes the device on the internal oscillator
	regWhoAmI      = 0x75
)

const (
	// DefaultMPU6050Addr is the bus address with AD0 tied low.
	DefaultMPU6050Addr = 0x68
	// whoAmIVal is reported regardless of the AD0 strap.
	whoAmIVal = 0x68

	// dlpf44Hz sets DLPF_CFG=3: ~44 Hz accel / 42 Hz gyro bandwidth.
	dlpf44Hz = 0x03

	// dataSize covers ACCEL_XOUT_H through GYRO_ZOUT_L.
	dataSize = 14
)

var axisRegs = [...]byte{
	imu.AccelX: regAccelXOutH,
	imu.AccelY: regAccelYOutH,
	imu.AccelZ: regAccelZOutH,
	imu.GyroX:  regGyroXOutH,
	imu.GyroY:  regGyroYOutH,
	imu.GyroZ:  regGyroZOutH,
}
