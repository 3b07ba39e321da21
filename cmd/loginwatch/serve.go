// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/loginwatch/internal/alerting"
	"github.com/tomtom215/loginwatch/internal/api"
	"github.com/tomtom215/loginwatch/internal/config"
	"github.com/tomtom215/loginwatch/internal/engine"
	"github.com/tomtom215/loginwatch/internal/geo"
	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/supervisor"
	"github.com/tomtom215/loginwatch/internal/supervisor/services"
)

// serve runs the HTTP scoring API under the supervisor tree until ctx ends.
func serve(ctx context.Context, cfg *config.Config) error {
	logging.Info().Str("version", version).Msg("Starting loginwatch with supervisor tree")

	eng, res, err := engine.FromConfig(cfg, nil)
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing geolocation cache")
		}
	}()

	// Bridges zerolog to slog for sutureslog.
	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if res.DiskCache != nil {
		tree.AddDataService(services.NewCacheGCService(res.DiskCache, services.DefaultGCInterval, services.DefaultGCDiscardRatio))
		logging.Info().Msg("Geolocation cache GC added to supervisor tree")
	}
	if res.StaticTable != nil && cfg.Geolocation.WatchStaticTable {
		tree.AddDataService(geo.NewTableWatcher(res.StaticTable, cfg.Geolocation.StaticTablePath, nil))
	}

	var alerts api.AlertPublisher
	if cfg.Alerting.Enabled {
		transport, err := alerting.Open(cfg.Alerting, cfg.Detection.RiskThreshold)
		if err != nil {
			return fmt.Errorf("open alert transport: %w", err)
		}
		defer func() {
			if err := transport.Publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing alert publisher")
			}
		}()
		alerts = transport.Publisher
		if transport.Subscriber != nil {
			tree.AddMessagingService(alerting.NewLogSink(transport.Subscriber, cfg.Alerting.Topic, nil))
			logging.Info().Str("topic", cfg.Alerting.Topic).Msg("Alert log sink added to supervisor tree")
		}
	}

	handler := api.NewHandler(eng, alerts, api.HandlerConfig{
		MaxEvents: cfg.Server.MaxEvents,
		Timeout:   cfg.Server.Timeout,
		Version:   version,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Server)))

	// Writes include the scoring run, so they get the run timeout plus slack.
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown requested, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("loginwatch stopped")
	return nil
}
