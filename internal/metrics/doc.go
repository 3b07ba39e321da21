// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package metrics provides Prometheus metrics for the scoring engine.

All collectors are registered on the default registry through promauto at
package init and exposed by the API server at /metrics:

	curl http://localhost:8470/metrics

# Available Metrics

Batch and scoring:
  - loginwatch_batch_duration_seconds, loginwatch_batch_events
  - loginwatch_assessments_total{criticality}
  - loginwatch_warnings_total{kind}
  - loginwatch_features_insufficient_history_total

Detectors:
  - loginwatch_detector_duration_seconds{detector}
  - loginwatch_detector_degenerate_total{detector}
  - loginwatch_detector_anomalies_total{detector}

Geolocation:
  - loginwatch_geo_lookups_total{provider,outcome}
  - loginwatch_geo_lookup_duration_seconds{provider}
  - loginwatch_geo_cache_hits_total{layer}, loginwatch_geo_cache_misses_total{layer}
  - loginwatch_geo_rate_limit_wait_seconds, loginwatch_geo_retries_total
  - loginwatch_impossible_travel_total
  - circuit_breaker_state{name} and related breaker series

Alerting and API:
  - loginwatch_alerts_published_total{criticality}, loginwatch_alert_publish_errors_total
  - api_requests_total, api_request_duration_seconds, api_active_requests
*/
package metrics
