// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/instrument_panel/internal/app"
	"github.com/relabs-tech/instrument_panel/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (built-in defaults when empty)")
	broker := flag.String("broker", "", "MQTT broker URL, overrides mqtt.broker")
	setMode := flag.Int("set-mode", -1, "publish this mode index before watching")
	flag.Parse()

	log.Println("starting instrument panel console (MQTT subscriber)")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunConsoleMQTT(ctx, cfg.MQTT, *setMode, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
