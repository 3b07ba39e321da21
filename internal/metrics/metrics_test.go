// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDetector(t *testing.T) {
	tests := []struct {
		name       string
		detector   string
		anomalies  int
		degenerate bool
	}{
		{name: "normal pass", detector: "test_density", anomalies: 3},
		{name: "degenerate pass", detector: "test_cluster", degenerate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beforeAnomalies := testutil.ToFloat64(DetectorAnomaliesTotal.WithLabelValues(tt.detector))
			beforeDegenerate := testutil.ToFloat64(DetectorDegenerateTotal.WithLabelValues(tt.detector))

			RecordDetector(tt.detector, 5*time.Millisecond, tt.anomalies, tt.degenerate)

			if got := testutil.ToFloat64(DetectorAnomaliesTotal.WithLabelValues(tt.detector)) - beforeAnomalies; got != float64(tt.anomalies) {
				t.Errorf("anomalies delta = %v, want %d", got, tt.anomalies)
			}
			wantDegenerate := 0.0
			if tt.degenerate {
				wantDegenerate = 1
			}
			if got := testutil.ToFloat64(DetectorDegenerateTotal.WithLabelValues(tt.detector)) - beforeDegenerate; got != wantDegenerate {
				t.Errorf("degenerate delta = %v, want %v", got, wantDegenerate)
			}
		})
	}
}

func TestRecordGeoLookup(t *testing.T) {
	success := GeoLookupsTotal.WithLabelValues("test-provider", "success")
	failure := GeoLookupsTotal.WithLabelValues("test-provider", "failure")
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)

	RecordGeoLookup("test-provider", time.Millisecond, nil)
	RecordGeoLookup("test-provider", time.Millisecond, errors.New("timeout"))
	RecordGeoLookup("test-provider", time.Millisecond, errors.New("timeout"))

	if got := testutil.ToFloat64(success) - beforeSuccess; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failure) - beforeFailure; got != 2 {
		t.Errorf("failure delta = %v, want 2", got)
	}
}

func TestRecordGeoCache(t *testing.T) {
	before := testutil.ToFloat64(GeoCacheHits.WithLabelValues("test-layer"))
	beforeMiss := testutil.ToFloat64(GeoCacheMisses.WithLabelValues("test-layer"))

	RecordGeoCache("test-layer", true)
	RecordGeoCache("test-layer", false)
	RecordGeoCache("test-layer", false)

	if got := testutil.ToFloat64(GeoCacheHits.WithLabelValues("test-layer")) - before; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(GeoCacheMisses.WithLabelValues("test-layer")) - beforeMiss; got != 2 {
		t.Errorf("misses delta = %v, want 2", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	RecordBatch(100, time.Second)
	RecordAssessment("Low")
	RecordWarning("degenerate_input")
	RecordAPIRequest("POST", "/api/v1/score", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
