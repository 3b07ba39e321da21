// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package api provides the HTTP API of the scoring service.

Endpoints:

  - POST /api/v1/score: score a batch of login events and publish alerts
    for high-risk assessments
  - GET /api/v1/health, /api/v1/health/live, /api/v1/health/ready
  - GET /metrics: Prometheus metrics

Every JSON response uses the models.APIResponse envelope. Each scoring
request is an independent batch: the engine builds a fresh per-batch
geolocation cache, while the provider rate limiter and circuit breaker are
shared across requests.

Usage Example:

	handler := api.NewHandler(eng, publisher, api.HandlerConfig{MaxEvents: 50000})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.DefaultChiMiddlewareConfig()))
	http.ListenAndServe(":8470", router.SetupChi())
*/
package api
