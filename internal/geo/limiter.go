// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/loginwatch/internal/metrics"
)

var errRateLimitUnsatisfiable = errors.New("rate limiter cannot grant a token")

// RateLimiter is a token bucket that caps provider requests per hour.
// Time comes from the injected Clock, so a FakeClock drives it in tests.
type RateLimiter struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewRateLimiter allows requestsPerHour requests with the given burst.
func NewRateLimiter(requestsPerHour, burst int, clock Clock) *RateLimiter {
	if clock == nil {
		clock = SystemClock{}
	}
	if burst < 1 {
		burst = 1
	}
	every := time.Hour / time.Duration(max(requestsPerHour, 1))
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(every), burst),
		clock:   clock,
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	now := r.clock.Now()
	reservation := r.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return errRateLimitUnsatisfiable
	}

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	metrics.GeoRateLimitWait.Observe(delay.Seconds())
	select {
	case <-ctx.Done():
		reservation.CancelAt(r.clock.Now())
		return ctx.Err()
	case <-r.clock.After(delay):
		return nil
	}
}

// Allow reports whether a token is available now without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.AllowN(r.clock.Now(), 1)
}
