// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/loginwatch/internal/config"
	"github.com/tomtom215/loginwatch/internal/detection"
	"github.com/tomtom215/loginwatch/internal/features"
	"github.com/tomtom215/loginwatch/internal/geo"
	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/scoring"
)

// OptionsFromConfig translates application configuration into engine
// options. Geolocation is left disabled; see NewAnalyzer.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	weights, err := scoring.NewWeights(cfg.Detection.DetectorWeights)
	if err != nil {
		return Options{}, err
	}
	thresholds, err := scoring.NewThresholds(cfg.Detection.DetectorThresholds)
	if err != nil {
		return Options{}, err
	}

	d := cfg.Detection
	return Options{
		Features: features.Config{
			MinHistory: cfg.Features.MinHistory,
			IPWindow:   cfg.Features.IPWindow,
		},
		Detection: detection.Config{
			IsolationForest: detection.IsolationForestConfig{
				Trees:         d.IsolationForest.Trees,
				SampleSize:    d.IsolationForest.SampleSize,
				MinSamples:    d.IsolationForest.MinSamples,
				Contamination: d.ContaminationRate,
				Seed:          d.Seed,
			},
			DBSCAN: detection.DBSCANConfig{
				Eps:           d.DBSCAN.Eps,
				MinSamples:    d.DBSCAN.MinSamples,
				BaselineScore: d.DBSCAN.BaselineScore,
			},
			Statistical: detection.StatisticalConfig{
				HourStdDevs:    d.Statistical.HourStdDevs,
				MaxDistinctIPs: d.Statistical.MaxDistinctIPs,
				Threshold:      d.Statistical.Threshold,
				OffHoursStart:  d.Statistical.OffHoursStart,
				OffHoursEnd:    d.Statistical.OffHoursEnd,
			},
		},
		Scoring: scoring.Config{
			Weights:               weights,
			Thresholds:            thresholds,
			ImpossibleTravelBoost: d.ImpossibleTravelBoost,
			ProxySuspectBoost:     d.ProxySuspectBoost,
		},
		RiskThreshold:    d.RiskThreshold,
		AnomalyThreshold: d.AnomalyThreshold,
	}, nil
}

// Resources holds what was opened alongside the provider. Close releases
// any cache connection.
type Resources struct {
	// StaticTable is set when the static provider is in use.
	StaticTable *geo.StaticProvider
	// DiskCache is set when a BadgerDB cache wraps the provider.
	DiskCache *geo.PersistentCache

	closers []io.Closer
}

// Close releases every opened cache.
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewProvider builds the configured geolocation provider. When a Redis URL
// or cache path is configured the provider is wrapped in a Redis or
// BadgerDB cache, which Resources.Close shuts down.
func NewProvider(cfg config.GeolocationConfig) (geo.Provider, *Resources, error) {
	res := &Resources{}
	var provider geo.Provider
	switch cfg.Provider {
	case "static":
		p, err := geo.LoadStaticProvider(cfg.StaticTablePath)
		if err != nil {
			return nil, nil, err
		}
		res.StaticTable = p
		provider = p
	case "ip-api", "":
		provider = geo.NewIPAPIProvider(cfg.BaseURL, cfg.Timeout)
	default:
		return nil, nil, fmt.Errorf("unknown geolocation provider %q", cfg.Provider)
	}

	switch {
	case cfg.RedisURL != "":
		cache, err := geo.OpenRedisCache(context.Background(), cfg.RedisURL, cfg.CacheTTL, provider)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Dur("ttl", cfg.CacheTTL).Msg("Redis geolocation cache connected")
		res.closers = append(res.closers, cache)
		return cache, res, nil
	case cfg.CachePath != "":
		cache, err := geo.OpenPersistentCache(cfg.CachePath, cfg.CacheTTL, provider)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().
			Str("path", cfg.CachePath).
			Dur("ttl", cfg.CacheTTL).
			Msg("Persistent geolocation cache opened")
		res.DiskCache = cache
		res.closers = append(res.closers, cache)
		return cache, res, nil
	default:
		return provider, res, nil
	}
}

// NewAnalyzer builds the geolocation analyzer over provider. A nil clock
// uses the system clock.
func NewAnalyzer(cfg config.GeolocationConfig, provider geo.Provider, clock geo.Clock) (*geo.Analyzer, error) {
	hosting, err := geo.NewHostingDetector(cfg.HostingASNs, cfg.HostingCIDRs)
	if err != nil {
		return nil, err
	}

	retry := geo.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}

	resolver := geo.NewResolver(provider, hosting, clock, geo.ResolverConfig{
		Workers:         cfg.Workers,
		RequestsPerHour: cfg.RequestsPerHour,
		Burst:           cfg.Burst,
		Retry:           retry,
	})
	return geo.NewAnalyzer(resolver, geo.AnalyzerConfig{
		ImpossibleTravelSpeedKmH: cfg.ImpossibleTravelSpeedKmH,
		MinElapsedHours:          cfg.MinElapsedHours,
	}), nil
}

// FromConfig builds an Engine from application configuration, including
// the geolocation stack when enabled. The returned Resources is never nil
// on success and must be closed by the caller.
func FromConfig(cfg *config.Config, clock geo.Clock) (*Engine, *Resources, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	res := &Resources{}
	if cfg.Geolocation.Enabled {
		provider, r, err := NewProvider(cfg.Geolocation)
		if err != nil {
			return nil, nil, fmt.Errorf("geolocation provider: %w", err)
		}
		analyzer, err := NewAnalyzer(cfg.Geolocation, provider, clock)
		if err != nil {
			_ = r.Close()
			return nil, nil, fmt.Errorf("geolocation analyzer: %w", err)
		}
		opts.Analyzer = analyzer
		res = r
	}

	eng, err := New(opts)
	if err != nil {
		_ = res.Close()
		return nil, nil, err
	}
	logging.Info().
		Bool("geolocation", eng.GeolocationEnabled()).
		Float64("risk_threshold", eng.RiskThreshold()).
		Msg("Scoring engine ready")
	return eng, res, nil
}
