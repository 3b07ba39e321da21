// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch Metrics
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginwatch_batch_duration_seconds",
			Help:    "Duration of a full scoring batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchEvents = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginwatch_batch_events",
			Help:    "Number of login events per scoring batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9), // 1 .. 65536
		},
	)

	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_assessments_total",
			Help: "Total number of risk assessments by criticality",
		},
		[]string{"criticality"}, // Low, Medium, High, Critical, Unscored
	)

	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_warnings_total",
			Help: "Total number of batch warnings by kind",
		},
		[]string{"kind"},
	)

	// Feature Extraction Metrics
	InsufficientHistoryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_features_insufficient_history_total",
			Help: "Events whose hour baseline fell back to neutral for lack of history",
		},
	)

	// Detector Metrics
	DetectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loginwatch_detector_duration_seconds",
			Help:    "Duration of a detector pass over a batch in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	DetectorDegenerateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_detector_degenerate_total",
			Help: "Detector passes that fell back to neutral scores",
		},
		[]string{"detector"},
	)

	DetectorAnomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_detector_anomalies_total",
			Help: "Events flagged anomalous by each detector",
		},
		[]string{"detector"},
	)

	// Geolocation Metrics
	GeoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_geo_lookups_total",
			Help: "Geolocation provider lookups by outcome",
		},
		[]string{"provider", "outcome"}, // outcome: success, failure, skipped
	)

	GeoLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loginwatch_geo_lookup_duration_seconds",
			Help:    "Duration of geolocation provider lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	GeoCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_geo_cache_hits_total",
			Help: "Geolocation cache hits by cache layer",
		},
		[]string{"layer"}, // batch, persistent
	)

	GeoCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_geo_cache_misses_total",
			Help: "Geolocation cache misses by cache layer",
		},
		[]string{"layer"},
	)

	GeoRateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginwatch_geo_rate_limit_wait_seconds",
			Help:    "Time spent waiting for a geolocation rate limit token",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	GeoRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_geo_retries_total",
			Help: "Geolocation lookup retries after a failed attempt",
		},
	)

	ImpossibleTravelTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_impossible_travel_total",
			Help: "Consecutive login pairs classified as impossible travel",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Alerting Metrics
	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_alerts_published_total",
			Help: "Risk alerts published by criticality",
		},
		[]string{"criticality"},
	)

	AlertPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_alert_publish_errors_total",
			Help: "Risk alerts that failed to publish",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of active API requests",
		},
	)
)

// RecordBatch records a finished scoring batch.
func RecordBatch(events int, duration time.Duration) {
	BatchEvents.Observe(float64(events))
	BatchDuration.Observe(duration.Seconds())
}

// RecordAssessment counts one assessment in its criticality band.
func RecordAssessment(criticality string) {
	AssessmentsTotal.WithLabelValues(criticality).Inc()
}

// RecordWarning counts one batch warning.
func RecordWarning(kind string) {
	WarningsTotal.WithLabelValues(kind).Inc()
}

// RecordDetector records one detector pass.
func RecordDetector(detector string, duration time.Duration, anomalies int, degenerate bool) {
	DetectorDuration.WithLabelValues(detector).Observe(duration.Seconds())
	if anomalies > 0 {
		DetectorAnomaliesTotal.WithLabelValues(detector).Add(float64(anomalies))
	}
	if degenerate {
		DetectorDegenerateTotal.WithLabelValues(detector).Inc()
	}
}

// RecordGeoLookup records one provider lookup attempt.
func RecordGeoLookup(provider string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	GeoLookupsTotal.WithLabelValues(provider, outcome).Inc()
	GeoLookupDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordGeoCache records a cache lookup on the given layer.
func RecordGeoCache(layer string, hit bool) {
	if hit {
		GeoCacheHits.WithLabelValues(layer).Inc()
		return
	}
	GeoCacheMisses.WithLabelValues(layer).Inc()
}

// RecordAPIRequest records API request metrics.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements active request counter
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
