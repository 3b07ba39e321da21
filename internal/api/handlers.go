// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package api

import (
	"context"
	"time"

	"github.com/tomtom215/loginwatch/internal/models"
)

// Scorer runs one batch through the scoring pipeline.
// Satisfied by *engine.Engine.
type Scorer interface {
	Run(ctx context.Context, events []models.LoginEvent) (*models.BatchResult, error)
	GeolocationEnabled() bool
}

// AlertPublisher publishes alerts for a scored batch.
// Satisfied by *alerting.Publisher.
type AlertPublisher interface {
	Publish(ctx context.Context, result *models.BatchResult) (int, error)
}

// HandlerConfig tunes request handling.
type HandlerConfig struct {
	// MaxEvents bounds the events accepted per request. Default: 50000
	MaxEvents int
	// MaxBodyBytes bounds the request body. Default: 64 MiB
	MaxBodyBytes int64
	// Timeout bounds one scoring run. Default: 60s
	Timeout time.Duration
	Version string
}

// Handler serves the API endpoints.
type Handler struct {
	engine    Scorer
	alerts    AlertPublisher
	config    HandlerConfig
	startTime time.Time
}

// NewHandler creates a Handler. alerts may be nil when alerting is disabled.
func NewHandler(engine Scorer, alerts AlertPublisher, cfg HandlerConfig) *Handler {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 50000
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &Handler{
		engine:    engine,
		alerts:    alerts,
		config:    cfg,
		startTime: time.Now(),
	}
}
