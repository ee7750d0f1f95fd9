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
	flag.Parse()

	log.Println("starting instrument panel")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	panel, err := app.Start(cfg)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	select {
	case <-ctx.Done():
		log.Println("shutting down")
	case <-panel.Done():
	}

	if err := panel.Close(); err != nil {
		log.Printf("release: %v", err)
	}
	if err := panel.Err(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
