// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/instrument_panel/internal/imu"
)

// Config holds all application configuration values.
type Config struct {
	I2C         I2CConfig     `yaml:"i2c"`
	Sensor      SensorConfig  `yaml:"sensor"`
	Display     DisplayConfig `yaml:"display"`
	Calibration imu.Offsets   `yaml:"calibration"`
	Filter      FilterConfig  `yaml:"filter"`
	Button      ButtonConfig  `yaml:"button"`
	Panel       PanelConfig   `yaml:"panel"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
	Web         WebConfig     `yaml:"web"`
}

type I2CConfig struct {
	// Bus is the periph bus name or number; "" opens the first bus found.
	Bus string `yaml:"bus"`
}

type SensorConfig struct {
	Backend string `yaml:"backend"` // mpu6050 | mock
	Address uint16 `yaml:"address"`
}

type DisplayConfig struct {
	Backend    string `yaml:"backend"` // ssd1306 | serlcd | console
	SerialPort string `yaml:"serial_port"`
	BaudRate   uint   `yaml:"baud_rate"`
}

type FilterConfig struct {
	// GyroThreshold bypasses smoothing while any calibrated gyro axis
	// exceeds it. 0 disables gating; unset selects DefaultGyroThreshold.
	GyroThreshold *int `yaml:"gyro_threshold"`
}

type ButtonConfig struct {
	Backend  string         `yaml:"backend"` // gpiocdev | periph | none
	Chip     string         `yaml:"chip"`
	Line     string         `yaml:"line"`
	// Cooldown is the minimum gap between accepted presses; unset selects
	// DefaultCooldown.
	Cooldown *time.Duration `yaml:"cooldown"`
}

type PanelConfig struct {
	// InitDelay postpones the first tick; unset selects DefaultInitDelay,
	// 0 starts right away.
	InitDelay   *time.Duration `yaml:"init_delay"`
	InitialMode string         `yaml:"initial_mode"`
}

type MQTTConfig struct {
	Enable          bool          `yaml:"enable"`
	Broker          string        `yaml:"broker"`
	ClientID        string        `yaml:"client_id"`
	TopicPrefix     string        `yaml:"topic_prefix"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

type WebConfig struct {
	Enable         bool          `yaml:"enable"`
	Listen         string        `yaml:"listen"`
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// Defaults.
const (
	DefaultGyroThreshold = 2000
	DefaultSensorAddress = 0x68
	DefaultBaudRate      = 9600

	DefaultCooldown  = 500 * time.Millisecond
	DefaultInitDelay = time.Second
)

// Backend names.
const (
	SensorMPU6050 = "mpu6050"
	SensorMock    = "mock"

	DisplaySSD1306 = "ssd1306"
	DisplaySerLCD  = "serlcd"
	DisplayConsole = "console"

	ButtonGPIOCDev = "gpiocdev"
	ButtonPeriph   = "periph"
	ButtonNone     = "none"
)

// Load reads and validates the YAML file at path. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML document. An empty document yields
// the defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// GyroThreshold returns the effective gating threshold.
func (c Config) GyroThreshold() int {
	if c.Filter.GyroThreshold == nil {
		return DefaultGyroThreshold
	}
	return *c.Filter.GyroThreshold
}

// Cooldown returns the effective button cooldown.
func (c Config) Cooldown() time.Duration {
	if c.Button.Cooldown == nil {
		return DefaultCooldown
	}
	return *c.Button.Cooldown
}

// InitDelay returns the effective delay before the first tick.
func (c Config) InitDelay() time.Duration {
	if c.Panel.InitDelay == nil {
		return DefaultInitDelay
	}
	return *c.Panel.InitDelay
}

func (c *Config) applyDefaults() {
	if c.I2C.Bus == "" {
		c.I2C.Bus = "1"
	}
	if c.Sensor.Backend == "" {
		c.Sensor.Backend = SensorMPU6050
	}
	if c.Sensor.Address == 0 {
		c.Sensor.Address = DefaultSensorAddress
	}
	if c.Display.Backend == "" {
		c.Display.Backend = DisplaySSD1306
	}
	if c.Display.BaudRate == 0 {
		c.Display.BaudRate = DefaultBaudRate
	}
	if c.Button.Backend == "" {
		c.Button.Backend = ButtonGPIOCDev
	}
	if c.Button.Chip == "" {
		c.Button.Chip = "gpiochip0"
	}
	if c.Button.Line == "" {
		c.Button.Line = "GPIO26"
	}
	if c.Panel.InitialMode == "" {
		c.Panel.InitialMode = "inclinometer"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "instrument-panel"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "panel"
	}
	if c.MQTT.PublishInterval <= 0 {
		c.MQTT.PublishInterval = time.Second
	}
	if c.Web.Listen == "" {
		c.Web.Listen = ":8080"
	}
	if c.Web.StreamInterval <= 0 {
		c.Web.StreamInterval = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	switch c.Sensor.Backend {
	case SensorMPU6050, SensorMock:
	default:
		return fmt.Errorf("sensor.backend must be one of %s, %s", SensorMPU6050, SensorMock)
	}
	if c.Sensor.Address > 0x7F {
		return fmt.Errorf("sensor.address must be a 7-bit I2C address")
	}
	switch c.Display.Backend {
	case DisplaySSD1306, DisplayConsole:
	case DisplaySerLCD:
		if c.Display.SerialPort == "" {
			return fmt.Errorf("display.serial_port is required when display.backend is 'serlcd'")
		}
	default:
		return fmt.Errorf("display.backend must be one of %s, %s, %s", DisplaySSD1306, DisplaySerLCD, DisplayConsole)
	}
	if c.GyroThreshold() < 0 {
		return fmt.Errorf("filter.gyro_threshold must be >= 0")
	}
	switch c.Button.Backend {
	case ButtonGPIOCDev, ButtonPeriph, ButtonNone:
	default:
		return fmt.Errorf("button.backend must be one of %s, %s, %s", ButtonGPIOCDev, ButtonPeriph, ButtonNone)
	}
	if c.Cooldown() <= 0 {
		return fmt.Errorf("button.cooldown must be > 0")
	}
	if c.InitDelay() < 0 {
		return fmt.Errorf("panel.init_delay must be >= 0")
	}
	if c.MQTT.Enable {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if strings.HasSuffix(c.MQTT.TopicPrefix, "/") || strings.ContainsAny(c.MQTT.TopicPrefix, "#+") {
			return fmt.Errorf("mqtt.topic_prefix must not end with '/' or contain wildcards")
		}
	}
	return nil
}
