// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package scoring

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/loginwatch/internal/detection"
	"github.com/tomtom215/loginwatch/internal/models"
)

func TestBand(t *testing.T) {
	tests := []struct {
		score float64
		want  models.Criticality
	}{
		{score: 0, want: models.CriticalityLow},
		{score: 0.39999, want: models.CriticalityLow},
		{score: 0.4, want: models.CriticalityMedium},
		{score: 0.59, want: models.CriticalityMedium},
		{score: 0.6, want: models.CriticalityHigh},
		{score: 0.79999, want: models.CriticalityHigh},
		{score: 0.8, want: models.CriticalityCritical},
		{score: 1, want: models.CriticalityCritical},
	}

	for _, tt := range tests {
		if got := Band(tt.score); got != tt.want {
			t.Errorf("Band(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestNewWeights(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]float64
		wantErr string
	}{
		{
			name: "defaults",
			raw:  map[string]float64{"density_outlier": 0.4, "cluster_outlier": 0.3, "statistical_rule": 0.3},
		},
		{
			name: "within tolerance",
			raw:  map[string]float64{"density_outlier": 0.3333333, "cluster_outlier": 0.3333333, "statistical_rule": 0.3333334},
		},
		{
			name: "single detector",
			raw:  map[string]float64{"density_outlier": 1, "cluster_outlier": 0, "statistical_rule": 0},
		},
		{
			name:    "sum above one",
			raw:     map[string]float64{"density_outlier": 0.5, "cluster_outlier": 0.3, "statistical_rule": 0.3},
			wantErr: "sum to",
		},
		{
			name:    "sum below one",
			raw:     map[string]float64{"density_outlier": 0.4, "cluster_outlier": 0.3, "statistical_rule": 0.2},
			wantErr: "sum to",
		},
		{
			name:    "missing detector",
			raw:     map[string]float64{"density_outlier": 0.5, "cluster_outlier": 0.5},
			wantErr: "missing weight for statistical_rule",
		},
		{
			name:    "unknown detector",
			raw:     map[string]float64{"density_outlier": 0.4, "cluster_outlier": 0.3, "lof": 0.3},
			wantErr: "unknown detector",
		},
		{
			name:    "negative weight",
			raw:     map[string]float64{"density_outlier": 1.2, "cluster_outlier": -0.2, "statistical_rule": 0},
			wantErr: "within [0,1]",
		},
		{
			name:    "not finite",
			raw:     map[string]float64{"density_outlier": math.NaN(), "cluster_outlier": 0.5, "statistical_rule": 0.5},
			wantErr: "not finite",
		},
		{
			name:    "empty",
			raw:     nil,
			wantErr: "no weights",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights, err := NewWeights(tt.raw)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewWeights() error: %v", err)
				}
				if len(weights) != len(detection.Kinds) {
					t.Errorf("got %d weights, want %d", len(weights), len(detection.Kinds))
				}
				return
			}

			var weightErr *InvalidWeightConfigError
			if !errors.As(err, &weightErr) {
				t.Fatalf("error = %v, want *InvalidWeightConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewThresholds(t *testing.T) {
	got, err := NewThresholds(map[string]float64{"cluster_outlier": 0.25})
	if err != nil {
		t.Fatal(err)
	}
	if got[detection.KindClusterOutlier] != 0.25 {
		t.Errorf("threshold = %v", got[detection.KindClusterOutlier])
	}

	empty, err := NewThresholds(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("NewThresholds(nil) = %v, %v", empty, err)
	}

	if _, err := NewThresholds(map[string]float64{"cluster_outlier": 1.5}); err == nil {
		t.Error("out of range threshold should fail")
	}
	if _, err := NewThresholds(map[string]float64{"nope": 0.5}); err == nil {
		t.Error("unknown detector should fail")
	}
}

func result(kind detection.Kind, score float64, anomalous bool) models.DetectorResult {
	return models.DetectorResult{Detector: string(kind), Score: score, IsAnomalous: anomalous}
}

func singleEventResults(density, cluster, statistical models.DetectorResult) map[detection.Kind][]models.DetectorResult {
	return map[detection.Kind][]models.DetectorResult{
		detection.KindDensityOutlier:  {density},
		detection.KindClusterOutlier:  {cluster},
		detection.KindStatisticalRule: {statistical},
	}
}

func input() Input {
	return Input{
		Index: 0,
		Event: models.LoginEvent{
			Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			UserID:    "alice",
			IPAddress: "81.2.69.142",
		},
	}
}

func TestAggregator_Score(t *testing.T) {
	agg, err := NewAggregator(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		results     map[detection.Kind][]models.DetectorResult
		travel      bool
		proxy       bool
		wantScore   float64
		wantBand    models.Criticality
		wantFactors []string
	}{
		{
			name: "all quiet",
			results: singleEventResults(
				result(detection.KindDensityOutlier, 0, false),
				result(detection.KindClusterOutlier, 0, false),
				result(detection.KindStatisticalRule, 0, false)),
			wantScore:   0,
			wantBand:    models.CriticalityLow,
			wantFactors: []string{},
		},
		{
			name: "weighted sum",
			results: singleEventResults(
				result(detection.KindDensityOutlier, 0.5, false),
				result(detection.KindClusterOutlier, 1, true),
				result(detection.KindStatisticalRule, 0.2, false)),
			wantScore:   0.56,
			wantBand:    models.CriticalityMedium,
			wantFactors: []string{"cluster_outlier"},
		},
		{
			name: "impossible travel boost",
			results: singleEventResults(
				result(detection.KindDensityOutlier, 0.5, false),
				result(detection.KindClusterOutlier, 0, false),
				result(detection.KindStatisticalRule, 0.2, false)),
			travel:      true,
			wantScore:   0.46,
			wantBand:    models.CriticalityMedium,
			wantFactors: []string{"impossible_travel"},
		},
		{
			name: "boosts clamp at one",
			results: singleEventResults(
				result(detection.KindDensityOutlier, 1, true),
				result(detection.KindClusterOutlier, 1, true),
				result(detection.KindStatisticalRule, 0.8, true)),
			travel:      true,
			proxy:       true,
			wantScore:   1,
			wantBand:    models.CriticalityCritical,
			wantFactors: []string{"density_outlier", "cluster_outlier", "statistical_rule", "impossible_travel", "proxy_suspect"},
		},
		{
			name: "proxy only",
			results: singleEventResults(
				result(detection.KindDensityOutlier, 0, false),
				result(detection.KindClusterOutlier, 0, false),
				result(detection.KindStatisticalRule, 0, false)),
			proxy:       true,
			wantScore:   0.1,
			wantBand:    models.CriticalityLow,
			wantFactors: []string{"proxy_suspect"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input()
			in.Vector.ImpossibleTravel = tt.travel
			in.Vector.ProxySuspect = tt.proxy

			got, err := agg.Score(&in, tt.results)
			if err != nil {
				t.Fatalf("Score() error: %v", err)
			}
			if math.Abs(got.RiskScore-tt.wantScore) > 1e-9 {
				t.Errorf("RiskScore = %v, want %v", got.RiskScore, tt.wantScore)
			}
			if got.RiskScore < 0 || got.RiskScore > 1 {
				t.Errorf("RiskScore %v out of [0,1]", got.RiskScore)
			}
			if got.Criticality != tt.wantBand {
				t.Errorf("Criticality = %s, want %s", got.Criticality, tt.wantBand)
			}
			if !reflect.DeepEqual(got.ContributingFactors, tt.wantFactors) {
				t.Errorf("ContributingFactors = %v, want %v", got.ContributingFactors, tt.wantFactors)
			}
			if !got.Scored || got.UserID != "alice" {
				t.Errorf("assessment = %+v", got)
			}
			if len(got.DetectorResults) != 3 {
				t.Errorf("got %d detector results, want 3", len(got.DetectorResults))
			}
		})
	}
}

func TestAggregator_ScoreStaysInRange(t *testing.T) {
	weightSets := []Weights{
		DefaultWeights(),
		{detection.KindDensityOutlier: 1, detection.KindClusterOutlier: 0, detection.KindStatisticalRule: 0},
		{detection.KindDensityOutlier: 0, detection.KindClusterOutlier: 1, detection.KindStatisticalRule: 0},
		{detection.KindDensityOutlier: 0, detection.KindClusterOutlier: 0, detection.KindStatisticalRule: 1},
		{detection.KindDensityOutlier: 0.5, detection.KindClusterOutlier: 0.5, detection.KindStatisticalRule: 0},
		{detection.KindDensityOutlier: 0.3333333, detection.KindClusterOutlier: 0.3333333, detection.KindStatisticalRule: 0.3333334},
		{detection.KindDensityOutlier: 0.05, detection.KindClusterOutlier: 0.05, detection.KindStatisticalRule: 0.9},
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		a, b := rng.Float64(), rng.Float64()
		if a > b {
			a, b = b, a
		}
		weightSets = append(weightSets, Weights{
			detection.KindDensityOutlier:  a,
			detection.KindClusterOutlier:  b - a,
			detection.KindStatisticalRule: 1 - b,
		})
	}
	boostSets := [][2]float64{{0.2, 0.1}, {1, 1}}
	levels := []float64{0, 0.25, 0.5, 0.75, 1}

	for wi, weights := range weightSets {
		for _, boosts := range boostSets {
			cfg := DefaultConfig()
			cfg.Weights = weights
			cfg.ImpossibleTravelBoost, cfg.ProxySuspectBoost = boosts[0], boosts[1]
			agg, err := NewAggregator(cfg)
			if err != nil {
				t.Fatalf("weights #%d %v rejected: %v", wi, weights, err)
			}

			for _, d := range levels {
				for _, c := range levels {
					for _, st := range levels {
						for flags := 0; flags < 4; flags++ {
							in := input()
							in.Vector.ImpossibleTravel = flags&1 != 0
							in.Vector.ProxySuspect = flags&2 != 0
							results := singleEventResults(
								result(detection.KindDensityOutlier, d, d >= 0.5),
								result(detection.KindClusterOutlier, c, c >= 0.5),
								result(detection.KindStatisticalRule, st, st >= 0.4))

							got, err := agg.Score(&in, results)
							if err != nil {
								t.Fatalf("Score: %v", err)
							}
							if got.RiskScore < 0 || got.RiskScore > 1 || math.IsNaN(got.RiskScore) {
								t.Errorf("weights #%d boosts %v scores (%v,%v,%v) flags %b: risk %v out of [0,1]",
									wi, boosts, d, c, st, flags, got.RiskScore)
							}
							if got.Criticality != Band(got.RiskScore) {
								t.Errorf("criticality %s does not match band of %v", got.Criticality, got.RiskScore)
							}
						}
					}
				}
			}
		}
	}
}

func TestAggregator_Thresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = Thresholds{detection.KindDensityOutlier: 0.3}
	agg, err := NewAggregator(cfg)
	if err != nil {
		t.Fatal(err)
	}

	in := input()
	results := singleEventResults(
		result(detection.KindDensityOutlier, 0.35, false),
		result(detection.KindClusterOutlier, 0.9, true),
		result(detection.KindStatisticalRule, 0, false))

	got, err := agg.Score(&in, results)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"density_outlier", "cluster_outlier"}
	if !reflect.DeepEqual(got.ContributingFactors, want) {
		t.Errorf("ContributingFactors = %v, want %v", got.ContributingFactors, want)
	}
}

func TestNewAggregator_InvalidWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{
		detection.KindDensityOutlier:  0.5,
		detection.KindClusterOutlier:  0.5,
		detection.KindStatisticalRule: 0.5,
	}
	_, err := NewAggregator(cfg)
	var weightErr *InvalidWeightConfigError
	if !errors.As(err, &weightErr) {
		t.Fatalf("error = %v, want *InvalidWeightConfigError", err)
	}
}

func TestAggregator_ScoreBatch_Sentinel(t *testing.T) {
	agg, err := NewAggregator(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	inputs := []Input{input(), input(), input()}
	for i := range inputs {
		inputs[i].Index = i
	}
	results := map[detection.Kind][]models.DetectorResult{
		detection.KindDensityOutlier: {
			result(detection.KindDensityOutlier, 0.2, false),
			result(detection.KindDensityOutlier, math.NaN(), false),
			result(detection.KindDensityOutlier, 0.9, true),
		},
		detection.KindClusterOutlier: {
			result(detection.KindClusterOutlier, 0, false),
			result(detection.KindClusterOutlier, 0, false),
			result(detection.KindClusterOutlier, 1, true),
		},
		// Statistical results cover only the first two events.
		detection.KindStatisticalRule: {
			result(detection.KindStatisticalRule, 0, false),
			result(detection.KindStatisticalRule, 0, false),
		},
	}

	assessments, warnings := agg.ScoreBatch(inputs, results)
	if len(assessments) != 3 {
		t.Fatalf("got %d assessments, want 3", len(assessments))
	}
	if !assessments[0].Scored || math.Abs(assessments[0].RiskScore-0.08) > 1e-9 {
		t.Errorf("event 0 = %+v, want scored 0.08", assessments[0])
	}
	for _, i := range []int{1, 2} {
		a := assessments[i]
		if a.Scored || a.Criticality != models.CriticalityUnscored || a.RiskScore != 0 || a.Error == "" {
			t.Errorf("event %d = %+v, want unscored sentinel", i, a)
		}
		if a.EventIndex != i {
			t.Errorf("sentinel event index = %d, want %d", a.EventIndex, i)
		}
	}
	if len(warnings) != 2 {
		t.Fatalf("got %d warnings, want 2", len(warnings))
	}
	for _, w := range warnings {
		if w.Kind != models.WarningScoringFailed {
			t.Errorf("warning kind = %s", w.Kind)
		}
	}
}

func TestAggregator_ScoreMissingResult(t *testing.T) {
	agg, err := NewAggregator(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	in := input()
	results := singleEventResults(
		result(detection.KindDensityOutlier, 0, false),
		result(detection.KindClusterOutlier, 0, false),
		result(detection.KindStatisticalRule, 0, false))

	results[detection.KindClusterOutlier] = nil
	if _, err := agg.Score(&in, results); err == nil {
		t.Error("missing cluster result should fail")
	}
}
