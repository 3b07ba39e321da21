// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Workers         int
	RequestsPerHour int
	Burst           int
	Retry           RetryPolicy
}

// DefaultResolverConfig returns 4 workers, 1000 requests/hour with a burst
// of 10, and the default retry policy.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Workers:         4,
		RequestsPerHour: 1000,
		Burst:           10,
		Retry:           DefaultRetryPolicy(),
	}
}

// Resolver resolves batches of IP addresses through a Provider.
// The rate limiter and circuit breaker live as long as the Resolver and are
// shared by every batch.
type Resolver struct {
	provider Provider
	limiter  *RateLimiter
	breaker  *breaker
	hosting  *HostingDetector
	clock    Clock
	config   ResolverConfig
}

// NewResolver creates a Resolver. A nil hosting detector uses the default
// hosting ASNs; a nil clock uses the system clock.
func NewResolver(provider Provider, hosting *HostingDetector, clock Clock, cfg ResolverConfig) *Resolver {
	if clock == nil {
		clock = SystemClock{}
	}
	if hosting == nil {
		hosting, _ = NewHostingDetector(nil, nil) //nolint:errcheck // no prefixes to parse
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Resolver{
		provider: provider,
		limiter:  NewRateLimiter(cfg.RequestsPerHour, cfg.Burst, clock),
		breaker:  newBreaker("geolocation-" + provider.Name()),
		hosting:  hosting,
		clock:    clock,
		config:   cfg,
	}
}

// ResolveAll resolves every IP in ips through cache with at most
// Workers concurrent lookups. The returned map holds one resolution per IP.
// It fails only when ctx is cancelled.
func (r *Resolver) ResolveAll(ctx context.Context, cache *Cache, ips []string) (map[string]Resolution, error) {
	results := make([]Resolution, len(ips))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i, ip := range ips {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = cache.Resolve(gctx, ip, r.resolve)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]Resolution, len(ips))
	for i, ip := range ips {
		out[ip] = results[i]
	}
	return out, nil
}

// resolve performs one uncached lookup with rate limiting, circuit breaking
// and retries.
func (r *Resolver) resolve(ctx context.Context, ipAddress string) Resolution {
	if err := ValidatePublicIP(ipAddress); err != nil {
		metrics.GeoLookupsTotal.WithLabelValues(r.provider.Name(), "skipped").Inc()
		source := SourceUnknown
		if errors.Is(err, ErrPrivateAddress) {
			source = SourceLocal
		}
		point := unknownPoint(ipAddress, source)
		r.hosting.Classify(point)
		return Resolution{Point: point, Failure: &LookupFailure{IPAddress: ipAddress, Attempts: 0, Err: err}}
	}

	var point *models.GeoPoint
	attempts, err := retry(ctx, r.config.Retry, r.clock, func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		p, err := r.breaker.execute(func() (*models.GeoPoint, error) {
			return r.provider.Lookup(ctx, ipAddress)
		})
		metrics.RecordGeoLookup(r.provider.Name(), time.Since(start), err)
		if err != nil {
			return err
		}
		point = p
		return nil
	}, func(err error, wait time.Duration) {
		metrics.GeoRetriesTotal.Inc()
		logging.Debug().Err(err).Str("ip", ipAddress).Dur("backoff", wait).Msg("Retrying geolocation lookup")
	})

	if err != nil {
		logging.Warn().Err(err).Str("ip", ipAddress).Int("attempts", attempts).Msg("Geolocation lookup failed, location unknown")
		point := unknownPoint(ipAddress, SourceUnknown)
		r.hosting.Classify(point)
		return Resolution{Point: point, Failure: &LookupFailure{IPAddress: ipAddress, Attempts: attempts, Err: err}}
	}

	// Providers may hand out shared values; never mutate them.
	resolved := *point
	resolved.IPAddress = ipAddress
	r.hosting.Classify(&resolved)
	return Resolution{Point: &resolved}
}
