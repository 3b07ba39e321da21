// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/loginwatch/internal/features"
	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// earthRadiusKm is the mean Earth radius used by haversine.
const earthRadiusKm = 6371.0

// AnalyzerConfig configures travel evaluation.
type AnalyzerConfig struct {
	// ImpossibleTravelSpeedKmH is the implied speed above which a pair is impossible.
	ImpossibleTravelSpeedKmH float64

	// MinElapsedHours floors the time between two logins so near-simultaneous
	// logins do not divide by zero.
	MinElapsedHours float64
}

// DefaultAnalyzerConfig returns 1000 km/h and a 0.001h floor.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		ImpossibleTravelSpeedKmH: 1000,
		MinElapsedHours:          0.001,
	}
}

// Analyzer resolves a batch's IPs and evaluates per-user travel.
type Analyzer struct {
	resolver *Resolver
	config   AnalyzerConfig
}

// NewAnalyzer creates an Analyzer. Non-positive settings fall back to defaults.
func NewAnalyzer(resolver *Resolver, cfg AnalyzerConfig) *Analyzer {
	defaults := DefaultAnalyzerConfig()
	if cfg.ImpossibleTravelSpeedKmH <= 0 {
		cfg.ImpossibleTravelSpeedKmH = defaults.ImpossibleTravelSpeedKmH
	}
	if cfg.MinElapsedHours <= 0 {
		cfg.MinElapsedHours = defaults.MinElapsedHours
	}
	return &Analyzer{resolver: resolver, config: cfg}
}

// EventFailure ties a lookup failure to an event that used the IP.
type EventFailure struct {
	EventIndex int
	Failure    *LookupFailure
}

// Analysis is the geolocation result for one batch.
type Analysis struct {
	// Locations holds the resolved location of each event, by event index.
	Locations []*models.GeoPoint

	// Arrivals holds, by event index, the travel pair that ends at the event.
	// It is nil for events with unknown location and for a user's first
	// located login.
	Arrivals []*models.TravelSignal

	// Signals lists every evaluated pair, ordered by user then time.
	Signals []models.TravelSignal

	// Failures lists lookup failures per affected event, by event index.
	Failures []EventFailure

	// Patterns summarizes each user's geography, sorted by user.
	Patterns []models.UserGeography

	// DistinctIPs is the number of distinct IPs resolved.
	DistinctIPs int
}

// Analyze resolves every distinct IP of events with a fresh batch cache
// and evaluates the travel between consecutive located logins of each user.
func (a *Analyzer) Analyze(ctx context.Context, events []models.LoginEvent) (*Analysis, error) {
	ips := distinctIPs(events)
	cache := NewCache()

	resolutions, err := a.resolver.ResolveAll(ctx, cache, ips)
	if err != nil {
		return nil, fmt.Errorf("resolve IP addresses: %w", err)
	}

	analysis := &Analysis{
		Locations:   make([]*models.GeoPoint, len(events)),
		Arrivals:    make([]*models.TravelSignal, len(events)),
		DistinctIPs: len(ips),
	}
	for i, event := range events {
		res := resolutions[event.IPAddress]
		analysis.Locations[i] = res.Point
		if res.Failure != nil {
			analysis.Failures = append(analysis.Failures, EventFailure{EventIndex: i, Failure: res.Failure})
		}
	}

	for _, user := range features.GroupByUser(events) {
		signals := a.evaluateUser(events, user, analysis.Locations)
		for j := range signals {
			signal := signals[j]
			analysis.Arrivals[signal.ToIndex] = &signal
			if signal.IsImpossibleTravel {
				metrics.ImpossibleTravelTotal.Inc()
			}
		}
		analysis.Signals = append(analysis.Signals, signals...)
		analysis.Patterns = append(analysis.Patterns, buildPattern(user, analysis.Locations, signals))
	}

	logging.Debug().
		Int("ips", len(ips)).
		Int("failures", len(analysis.Failures)).
		Int("pairs", len(analysis.Signals)).
		Msg("Geolocation analysis complete")

	return analysis, nil
}

// evaluateUser walks one user's located logins in time order. An event
// reached by impossible travel is not used as the next origin.
func (a *Analyzer) evaluateUser(events []models.LoginEvent, user features.UserEvents, locations []*models.GeoPoint) []models.TravelSignal {
	var signals []models.TravelSignal
	anchor := -1
	for _, idx := range user.Indices {
		if !locations[idx].Known() {
			continue
		}
		if anchor < 0 {
			anchor = idx
			continue
		}
		signal := a.Pair(user.UserID,
			anchor, locations[anchor], events[anchor].Timestamp,
			idx, locations[idx], events[idx].Timestamp)
		signals = append(signals, signal)
		if !signal.IsImpossibleTravel {
			anchor = idx
		}
	}
	return signals
}

// Pair evaluates the move between two located logins.
func (a *Analyzer) Pair(userID string, fromIndex int, from *models.GeoPoint, fromTime time.Time, toIndex int, to *models.GeoPoint, toTime time.Time) models.TravelSignal {
	distance := HaversineKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	elapsed := math.Max(toTime.Sub(fromTime).Hours(), a.config.MinElapsedHours)
	speed := distance / elapsed

	return models.TravelSignal{
		UserID:             userID,
		FromIndex:          fromIndex,
		ToIndex:            toIndex,
		DistanceKm:         round2(distance),
		ElapsedHours:       math.Round(elapsed*1e4) / 1e4,
		ImpliedSpeedKmH:    round2(speed),
		IsImpossibleTravel: speed > a.config.ImpossibleTravelSpeedKmH,
	}
}

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// distinctIPs returns the batch's IP addresses, sorted.
func distinctIPs(events []models.LoginEvent) []string {
	seen := make(map[string]struct{}, len(events))
	ips := make([]string, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.IPAddress]; ok {
			continue
		}
		seen[e.IPAddress] = struct{}{}
		ips = append(ips, e.IPAddress)
	}
	sort.Strings(ips)
	return ips
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
