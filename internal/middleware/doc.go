// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package middleware provides HTTP middleware for the scoring API.

Key Components:

  - RequestID: propagates or generates X-Request-ID and threads it into
    the logging context
  - PrometheusMetrics: per-route request counts, durations and in-flight
    gauge, plus a warning log for slow requests

Both follow chi's func(http.Handler) http.Handler shape and are mounted by
internal/api:

	r.Use(middleware.RequestID)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.Post("/score", handler.Score)
	})

Metrics are labeled with the chi route pattern rather than the raw path so
label cardinality stays bounded.
*/
package middleware
