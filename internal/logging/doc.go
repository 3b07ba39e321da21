// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package logging provides the zerolog-based global logger used by Loginwatch.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Int("events", n).Msg("Batch scored")
//	logging.Ctx(ctx).Warn().Str("ip", ip).Msg("Geolocation lookup failed")
//
// # Configuration
//
// Environment Variables (read by the config package):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
//
// # Context
//
// Every batch run carries a run id and every HTTP request a request id.
// Ctx(ctx) returns a logger with both attached when present.
//
// # Adapters
//
// NewSlogLogger returns an slog.Logger writing through zerolog. It feeds
// sutureslog in the supervisor tree and watermill in the alert publisher.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// chain is never written.
package logging
