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

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// redisKeyPrefix namespaces cached locations in a shared Redis.
const redisKeyPrefix = "loginwatch:geo:"

// RedisCache decorates a Provider with a Redis cache so several scoring
// processes share one set of resolved locations. Like PersistentCache it
// only stores successful lookups.
type RedisCache struct {
	client *redis.Client
	inner  Provider
	ttl    time.Duration
}

// NewRedisCache wraps inner with client. A non-positive ttl uses
// DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration, inner Provider) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, inner: inner, ttl: ttl}
}

// OpenRedisCache connects to the Redis at url (redis://[:password@]host:port/db)
// and checks it is reachable.
func OpenRedisCache(ctx context.Context, url string, ttl time.Duration, inner Provider) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis for geolocation cache: %w", err)
	}
	return NewRedisCache(client, ttl, inner), nil
}

// Name returns the wrapped provider's name.
func (c *RedisCache) Name() string {
	return c.inner.Name()
}

// Lookup returns the cached location or asks the wrapped provider.
// Redis errors degrade to a cache miss.
func (c *RedisCache) Lookup(ctx context.Context, ipAddress string) (*models.GeoPoint, error) {
	point, err := c.get(ctx, ipAddress)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("ip", ipAddress).Msg("Geolocation cache read failed")
	}
	if point != nil {
		metrics.RecordGeoCache("redis", true)
		return point, nil
	}
	metrics.RecordGeoCache("redis", false)

	point, err = c.inner.Lookup(ctx, ipAddress)
	if err != nil {
		return nil, err
	}
	if err := c.put(ctx, point); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("ip", ipAddress).Msg("Geolocation cache write failed")
	}
	return point, nil
}

func (c *RedisCache) get(ctx context.Context, ipAddress string) (*models.GeoPoint, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+ipAddress).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get geolocation: %w", err)
	}
	var p models.GeoPoint
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode geolocation: %w", err)
	}
	return &p, nil
}

func (c *RedisCache) put(ctx context.Context, point *models.GeoPoint) error {
	if point == nil || point.IPAddress == "" {
		return errors.New("geolocation point must carry an IP address")
	}
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("marshal geolocation: %w", err)
	}
	return c.client.Set(ctx, redisKeyPrefix+point.IPAddress, data, c.ttl).Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
