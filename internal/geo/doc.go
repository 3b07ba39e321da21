// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package geo resolves login IP addresses to locations and evaluates whether
consecutive logins of a user are geographically consistent.

# Resolution Pipeline

Each distinct IP of a batch is resolved once by a bounded worker pool:

	Cache (per batch, singleflight) -> RateLimiter -> circuit breaker -> Provider

Failed attempts are retried with exponential backoff. When the retry budget
is exhausted the IP resolves to an unknown location and a LookupFailure is
recorded for every event that used it; other events are unaffected.

Private, loopback and link-local addresses never reach the provider.

# Providers

  - IPAPIProvider: ip-api.com JSON API (free tier, no key)
  - StaticProvider: in-memory table, optionally loaded from a JSON file
  - PersistentCache: BadgerDB-backed decorator with a TTL, so repeated runs
    do not spend provider quota

# Proxy Suspicion

An IP is a proxy suspect when the provider flags it as proxy or hosting,
when its ASN is a known hosting network, when it falls in a configured
hosting prefix, or when the ISP name carries a VPN/proxy/hosting marker.

# Travel Analysis

Per user, events are walked in timestamp order. Each event with a known
location is compared with the previous anchor:

	distance_km       = haversine(anchor, event)      (R = 6371 km)
	elapsed_hours     = max(Δt, min_elapsed_hours)
	implied_speed_kmh = distance_km / elapsed_hours

The pair is impossible travel when the implied speed exceeds the configured
limit (default 1000 km/h). An event reached by impossible travel does not
become the next anchor, so returning to the usual location is not flagged
a second time.

# Clock

The rate limiter and retry backoff read time through the Clock interface.
Tests use FakeClock, which advances instantly instead of sleeping.
*/
package geo
