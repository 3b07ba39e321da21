// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// Resolution is the outcome of resolving one IP. Point is never nil; it is
// an unknown location when Failure is set.
type Resolution struct {
	Point   *models.GeoPoint
	Failure *LookupFailure
}

// Cache holds the resolutions of one batch. It is created at batch start
// and dropped at batch end. The first resolution stored for an IP wins and
// concurrent lookups of the same IP share one call.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Resolution
	group   singleflight.Group
}

// NewCache creates an empty batch cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Resolution)}
}

// Get returns the stored resolution for ipAddress.
func (c *Cache) Get(ipAddress string) (Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[ipAddress]
	return r, ok
}

// Store records r for ipAddress unless a resolution already exists, and
// returns the resolution that is now cached.
func (c *Cache) Store(ipAddress string, r Resolution) Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[ipAddress]; ok {
		return existing
	}
	c.entries[ipAddress] = r
	return r
}

// Len returns the number of cached IPs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolve returns the cached resolution for ipAddress, calling resolve at
// most once per IP across concurrent callers.
func (c *Cache) Resolve(ctx context.Context, ipAddress string, resolve func(context.Context, string) Resolution) Resolution {
	if r, ok := c.Get(ipAddress); ok {
		metrics.RecordGeoCache("batch", true)
		return r
	}
	metrics.RecordGeoCache("batch", false)

	v, _, _ := c.group.Do(ipAddress, func() (interface{}, error) {
		if r, ok := c.Get(ipAddress); ok {
			return r, nil
		}
		return c.Store(ipAddress, resolve(ctx, ipAddress)), nil
	})
	return v.(Resolution)
}
