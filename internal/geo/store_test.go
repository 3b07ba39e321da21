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
)

func openTestCache(t *testing.T, inner Provider) *PersistentCache {
	t.Helper()
	cache, err := OpenPersistentCache("", time.Hour, inner)
	if err != nil {
		t.Fatalf("OpenPersistentCache: %v", err)
	}
	t.Cleanup(func() {
		if err := cache.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return cache
}

func TestPersistentCache_ServesRepeatLookups(t *testing.T) {
	inner := newFakeProvider(at("81.2.69.142", london))
	cache := openTestCache(t, inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		point, err := cache.Lookup(ctx, "81.2.69.142")
		if err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
		if point.City != "London" {
			t.Fatalf("Lookup %d city = %q, want London", i, point.City)
		}
	}
	if got := inner.callCount("81.2.69.142"); got != 1 {
		t.Errorf("inner provider called %d times, want 1", got)
	}
	if cache.Name() != "fake" {
		t.Errorf("Name() = %q, want inner provider name", cache.Name())
	}
}

func TestPersistentCache_FailuresAreNotCached(t *testing.T) {
	inner := newFakeProvider(at("81.2.69.142", london))
	inner.failures["81.2.69.142"] = 1
	cache := openTestCache(t, inner)
	ctx := context.Background()

	if _, err := cache.Lookup(ctx, "81.2.69.142"); !errors.Is(err, errTransient) {
		t.Fatalf("first Lookup error = %v, want errTransient", err)
	}
	if point, _ := cache.Get("81.2.69.142"); point != nil {
		t.Fatalf("failed lookup was cached: %+v", point)
	}
	if _, err := cache.Lookup(ctx, "81.2.69.142"); err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if got := inner.callCount("81.2.69.142"); got != 2 {
		t.Errorf("inner provider called %d times, want 2", got)
	}
}

func TestPersistentCache_PutGet(t *testing.T) {
	cache := openTestCache(t, newFakeProvider())

	point, err := cache.Get("203.0.113.1")
	if err != nil || point != nil {
		t.Fatalf("Get on empty cache = %+v, %v; want nil, nil", point, err)
	}

	want := at("203.0.113.1", tokyo)
	if err := cache.Put(&want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := cache.Get("203.0.113.1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || *got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	if err := cache.Put(&tokyo); err == nil {
		t.Error("Put without an IP address should fail")
	}
}

func TestPersistentCache_RunGC(t *testing.T) {
	inner := newFakeProvider()
	cases := []struct {
		name string
		path string
	}{
		{name: "in memory", path: ""},
		{name: "on disk", path: t.TempDir()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cache, err := OpenPersistentCache(tc.path, time.Hour, inner)
			if err != nil {
				t.Fatalf("OpenPersistentCache: %v", err)
			}
			defer cache.Close()

			point := at("81.2.69.142", london)
			if err := cache.Put(&point); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := cache.RunGC(0.5); err != nil {
				t.Errorf("RunGC: %v", err)
			}
		})
	}
}
