// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T, inner Provider) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Hour, inner)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestRedisCache_ServesRepeatLookups(t *testing.T) {
	inner := newFakeProvider(at("81.2.69.142", london))
	cache, mr := newTestRedisCache(t, inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		point, err := cache.Lookup(ctx, "81.2.69.142")
		if err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
		if point.City != "London" || point.ASN != 2856 {
			t.Fatalf("Lookup %d = %+v, want London AS2856", i, point)
		}
	}
	if got := inner.callCount("81.2.69.142"); got != 1 {
		t.Errorf("inner provider called %d times, want 1", got)
	}
	if ttl := mr.TTL(redisKeyPrefix + "81.2.69.142"); ttl != time.Hour {
		t.Errorf("cached TTL = %v, want 1h", ttl)
	}
}

func TestRedisCache_ExpiredEntriesAreRefetched(t *testing.T) {
	inner := newFakeProvider(at("81.2.69.142", london))
	cache, mr := newTestRedisCache(t, inner)
	ctx := context.Background()

	if _, err := cache.Lookup(ctx, "81.2.69.142"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := cache.Lookup(ctx, "81.2.69.142"); err != nil {
		t.Fatalf("Lookup after expiry: %v", err)
	}
	if got := inner.callCount("81.2.69.142"); got != 2 {
		t.Errorf("inner provider called %d times, want 2", got)
	}
}

func TestRedisCache_FailuresAreNotCached(t *testing.T) {
	inner := newFakeProvider(at("81.2.69.142", london))
	inner.failures["81.2.69.142"] = 1
	cache, mr := newTestRedisCache(t, inner)
	ctx := context.Background()

	if _, err := cache.Lookup(ctx, "81.2.69.142"); !errors.Is(err, errTransient) {
		t.Fatalf("first Lookup error = %v, want errTransient", err)
	}
	if mr.Exists(redisKeyPrefix + "81.2.69.142") {
		t.Fatal("failed lookup was cached")
	}
	if _, err := cache.Lookup(ctx, "81.2.69.142"); err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
}

func TestRedisCache_DegradesWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	cache := NewRedisCache(client, time.Hour, newFakeProvider(at("81.2.69.142", london)))
	defer cache.Close()
	mr.Close()

	point, err := cache.Lookup(context.Background(), "81.2.69.142")
	if err != nil {
		t.Fatalf("Lookup with Redis down: %v", err)
	}
	if point.City != "London" {
		t.Errorf("city = %q, want London", point.City)
	}
}

func TestOpenRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	cache, err := OpenRedisCache(ctx, "redis://"+mr.Addr()+"/0", 0, newFakeProvider())
	if err != nil {
		t.Fatalf("OpenRedisCache: %v", err)
	}
	if cache.ttl != DefaultCacheTTL {
		t.Errorf("ttl = %v, want DefaultCacheTTL", cache.ttl)
	}
	_ = cache.Close()

	if _, err := OpenRedisCache(ctx, "not a url", time.Hour, newFakeProvider()); err == nil {
		t.Error("OpenRedisCache should reject a malformed URL")
	}
}
