// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/loginwatch/internal/logging"
)

// GarbageCollector is satisfied by *geo.PersistentCache.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

const (
	// DefaultGCInterval is how often the cache value log is compacted.
	DefaultGCInterval = 10 * time.Minute

	// DefaultGCDiscardRatio is the share of stale data a value log file must
	// hold before badger rewrites it.
	DefaultGCDiscardRatio = 0.5
)

// CacheGCService periodically compacts the persistent geolocation cache.
// Expired entries only release disk space once their value log file is
// rewritten.
type CacheGCService struct {
	cache        GarbageCollector
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewCacheGCService wraps cache. Non-positive arguments take the defaults.
func NewCacheGCService(cache GarbageCollector, interval time.Duration, discardRatio float64) *CacheGCService {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = DefaultGCDiscardRatio
	}
	return &CacheGCService{
		cache:        cache,
		interval:     interval,
		discardRatio: discardRatio,
		name:         "geo-cache-gc",
	}
}

// Serve implements suture.Service. A failed GC run is returned so the
// supervisor restarts the loop with backoff.
func (s *CacheGCService) Serve(ctx context.Context) error {
	logger := logging.WithComponent(s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.cache.RunGC(s.discardRatio); err != nil {
				return fmt.Errorf("geolocation cache GC: %w", err)
			}
			logger.Debug().Dur("duration", time.Since(start)).Msg("Geolocation cache compacted")
		}
	}
}

// String identifies the service in supervisor logs.
func (s *CacheGCService) String() string {
	return s.name
}
