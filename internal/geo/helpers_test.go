// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/loginwatch/internal/models"
)

var (
	london       = models.GeoPoint{Latitude: 51.5074, Longitude: -0.1278, Country: "United Kingdom", CountryCode: "GB", City: "London", ISP: "British Telecom", ASN: 2856}
	tokyo        = models.GeoPoint{Latitude: 35.6762, Longitude: 139.6503, Country: "Japan", CountryCode: "JP", City: "Tokyo", ISP: "NTT", ASN: 4713}
	newYork      = models.GeoPoint{Latitude: 40.7128, Longitude: -74.0060, Country: "United States", CountryCode: "US", City: "New York", ISP: "Verizon", ASN: 701}
	frankfurtDC  = models.GeoPoint{Latitude: 50.1109, Longitude: 8.6821, Country: "Germany", CountryCode: "DE", City: "Frankfurt", ISP: "Hetzner Online GmbH", ASN: 24940}
	errTransient = errors.New("provider temporarily unavailable")
)

func at(ip string, p models.GeoPoint) models.GeoPoint {
	p.IPAddress = ip
	return p
}

// fakeProvider serves fixed points and can fail a number of times per IP.
type fakeProvider struct {
	mu       sync.Mutex
	points   map[string]models.GeoPoint
	failures map[string]int // remaining failures; negative fails forever
	calls    map[string]int
	block    chan struct{}
}

func newFakeProvider(points ...models.GeoPoint) *fakeProvider {
	p := &fakeProvider{
		points:   make(map[string]models.GeoPoint),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	for _, pt := range points {
		p.points[pt.IPAddress] = pt
	}
	return p
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Lookup(ctx context.Context, ip string) (*models.GeoPoint, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[ip]++
	if n := p.failures[ip]; n != 0 {
		if n > 0 {
			p.failures[ip] = n - 1
		}
		return nil, errTransient
	}
	pt, ok := p.points[ip]
	if !ok {
		return nil, ErrNoResult
	}
	return &pt, nil
}

func (p *fakeProvider) callCount(ip string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[ip]
}

func testResolverConfig() ResolverConfig {
	return ResolverConfig{
		Workers:         4,
		RequestsPerHour: 1000,
		Burst:           10,
		Retry: RetryPolicy{
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
		},
	}
}

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
