// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// geoKeyPrefix namespaces cached locations in BadgerDB.
const geoKeyPrefix = "geo:"

// DefaultCacheTTL is how long a resolved location stays cached.
const DefaultCacheTTL = 7 * 24 * time.Hour

// PersistentCache decorates a Provider with a BadgerDB-backed cache.
// Only successful lookups are stored; entries expire after the TTL.
type PersistentCache struct {
	db    *badger.DB
	inner Provider
	ttl   time.Duration
}

// OpenPersistentCache opens (or creates) the cache at path. An empty path
// opens an in-memory database.
func OpenPersistentCache(path string, ttl time.Duration, inner Provider) (*PersistentCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs
	opts.ValueLogFileSize = 16 << 20

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for geolocation cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PersistentCache{db: db, inner: inner, ttl: ttl}, nil
}

// Name returns the wrapped provider's name.
func (c *PersistentCache) Name() string {
	return c.inner.Name()
}

// Lookup returns the cached location or asks the wrapped provider.
func (c *PersistentCache) Lookup(ctx context.Context, ipAddress string) (*models.GeoPoint, error) {
	point, err := c.Get(ipAddress)
	if err != nil {
		logging.Warn().Err(err).Str("ip", ipAddress).Msg("Geolocation cache read failed")
	}
	if point != nil {
		metrics.RecordGeoCache("persistent", true)
		return point, nil
	}
	metrics.RecordGeoCache("persistent", false)

	point, err = c.inner.Lookup(ctx, ipAddress)
	if err != nil {
		return nil, err
	}
	if err := c.Put(point); err != nil {
		logging.Warn().Err(err).Str("ip", ipAddress).Msg("Geolocation cache write failed")
	}
	return point, nil
}

// Get returns the cached location for ipAddress, or nil when absent.
func (c *PersistentCache) Get(ipAddress string) (*models.GeoPoint, error) {
	var point *models.GeoPoint
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(geoKeyPrefix + ipAddress))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get geolocation: %w", err)
		}
		return item.Value(func(val []byte) error {
			var p models.GeoPoint
			if err := json.Unmarshal(val, &p); err != nil {
				return fmt.Errorf("decode geolocation: %w", err)
			}
			point = &p
			return nil
		})
	})
	return point, err
}

// Put stores point under its IP address with the cache TTL.
func (c *PersistentCache) Put(point *models.GeoPoint) error {
	if point == nil || point.IPAddress == "" {
		return errors.New("geolocation point must carry an IP address")
	}
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal geolocation: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(geoKeyPrefix+point.IPAddress), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// RunGC reclaims value log space until badger reports nothing left to
// rewrite. In-memory caches have no value log and return nil.
func (c *PersistentCache) RunGC(discardRatio float64) error {
	for {
		err := c.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run geolocation cache GC: %w", err)
		}
	}
}

// Close closes the underlying database.
func (c *PersistentCache) Close() error {
	return c.db.Close()
}
