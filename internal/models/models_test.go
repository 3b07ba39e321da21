// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package models

import (
	"math"
	"reflect"
	"testing"
)

func TestGeoPoint_Known(t *testing.T) {
	tests := []struct {
		name  string
		point *GeoPoint
		want  bool
	}{
		{"nil", nil, false},
		{"zero placeholder", &GeoPoint{}, false},
		{"near zero", &GeoPoint{Latitude: 1e-9, Longitude: -1e-9}, false},
		{"equator meridian offset", &GeoPoint{Latitude: 0, Longitude: 0.01}, true},
		{"berlin", &GeoPoint{Latitude: 52.52, Longitude: 13.405}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.point.Known(); got != tt.want {
				t.Errorf("Known() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeatureVector_Values(t *testing.T) {
	f := FeatureVector{
		HourSin:           0.5,
		HourCos:           -0.5,
		IntervalHours:     math.E - 1,
		IPNovel:           true,
		UANovel:           true,
		DistinctIPsWindow: 3,
	}

	got := f.Values()
	if len(got) != len(FeatureNames) {
		t.Fatalf("len(Values) = %d, want %d", len(got), len(FeatureNames))
	}
	if math.Abs(got[2]-1) > 1e-12 {
		t.Errorf("log interval = %v, want 1", got[2])
	}
	if got[3] != 0 || got[4] != 0 {
		t.Errorf("novelty counted before the user is established: %v", got[3:5])
	}

	f.Established = true
	got = f.Values()
	if got[3] != 1 || got[4] != 1 {
		t.Errorf("novelty = %v, want [1 1] once established", got[3:5])
	}
	if got[5] != 3 {
		t.Errorf("distinct ips = %v, want 3", got[5])
	}

	located := f
	located.GeoKnown = true
	located.DistanceKm = 9560
	located.SpeedKmH = 19120
	located.ImpossibleTravel = true
	if !reflect.DeepEqual(located.Values(), got) {
		t.Errorf("geo slot changed the model row: %v vs %v", located.Values(), got)
	}
}

func TestRiskAssessment_HasFactor(t *testing.T) {
	r := RiskAssessment{ContributingFactors: []string{FactorDensityOutlier, FactorImpossibleTravel}}
	if !r.HasFactor(FactorImpossibleTravel) {
		t.Error("impossible_travel should be present")
	}
	if r.HasFactor(FactorProxySuspect) {
		t.Error("proxy_suspect should be absent")
	}
}
