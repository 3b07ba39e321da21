// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package main is the entry point for loginwatch.
//
// Two modes are supported:
//
//	loginwatch serve                       # HTTP scoring API (default)
//	loginwatch score [-out FILE] [-alerts] events.csv
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (RISK_THRESHOLD, GEOLOCATION_ENABLED, ...),
//     optionally seeded from a .env file in the working directory
//   - Config file (CONFIG_PATH or ./config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. In serve mode the supervisor
// tree drains in-flight requests before exiting; in score mode the running
// batch is abandoned.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomtom215/loginwatch/internal/config"
	"github.com/tomtom215/loginwatch/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Variables already set in the environment take precedence over .env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			logging.Info().Msg("Interrupted")
			return
		}
		logging.Error().Err(err).Msg("loginwatch failed")
		stop()
		os.Exit(1)
	}
}

// run dispatches to the requested mode.
func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return serve(ctx, cfg)
	}
	switch args[0] {
	case "serve":
		return serve(ctx, cfg)
	case "score":
		return score(ctx, cfg, args[1:], stdout)
	case "version":
		_, err := fmt.Fprintln(stdout, version)
		return err
	default:
		return fmt.Errorf("unknown command %q (want serve, score or version)", args[0])
	}
}
