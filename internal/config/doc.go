// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package config loads and validates Loginwatch configuration.

# Configuration Sources

Configuration is loaded with Koanf v2 in layers (highest priority wins):
  - Environment variables (explicit mapping, see envMappings)
  - Config file: $CONFIG_PATH, ./config.yaml, /etc/loginwatch/config.yaml
  - Built-in defaults (defaultConfig)

# Scoring Options

  - CONTAMINATION_RATE: expected anomaly fraction for the density model (default: 0.1)
  - RISK_THRESHOLD: score at or above which alerts are published (default: 0.7)
  - DETECTOR_WEIGHTS: "density_outlier=0.4,cluster_outlier=0.3,statistical_rule=0.3"
  - DETECTOR_THRESHOLDS: optional per-detector score thresholds, same format
  - IMPOSSIBLE_TRAVEL_BOOST / PROXY_SUSPECT_BOOST: additive boosts (default: 0.2 / 0.1)

# Geolocation Options

  - GEOLOCATION_ENABLED: resolve IPs and evaluate travel (default: true)
  - GEOLOCATION_PROVIDER: ip-api or static (default: ip-api)
  - IMPOSSIBLE_TRAVEL_SPEED_KMH: travel speed threshold (default: 1000)
  - GEO_REQUESTS_PER_HOUR: lookup quota (default: 1000)
  - GEO_WORKERS, GEO_MAX_RETRIES, GEO_INITIAL_BACKOFF, GEO_TIMEOUT
  - GEO_CACHE_PATH: BadgerDB directory for the persistent lookup cache (default: disabled)
  - GEO_HOSTING_ASNS, GEO_HOSTING_CIDRS: comma-separated proxy suspect lists

# Server, Alerting, Logging

  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
  - ALERTING_ENABLED, NATS_URL, ALERT_TOPIC
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Validate rejects malformed detector weights with scoring.InvalidWeightConfigError
before any event is processed.
*/
package config
