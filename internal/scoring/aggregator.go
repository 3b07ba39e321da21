// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package scoring

import (
	"fmt"
	"math"

	"github.com/tomtom215/loginwatch/internal/detection"
	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/models"
)

// scorePrecision is the number of decimal places kept on risk scores.
const scorePrecision = 1e6

// Config configures the Aggregator.
type Config struct {
	Weights               Weights
	Thresholds            Thresholds
	ImpossibleTravelBoost float64
	ProxySuspectBoost     float64
}

// DefaultConfig returns default weights, no threshold overrides, and
// boosts of 0.2 for impossible travel and 0.1 for proxy suspicion.
func DefaultConfig() Config {
	return Config{
		Weights:               DefaultWeights(),
		Thresholds:            Thresholds{},
		ImpossibleTravelBoost: 0.2,
		ProxySuspectBoost:     0.1,
	}
}

// Aggregator turns per-detector results into RiskAssessments.
type Aggregator struct {
	config Config
}

// NewAggregator validates the weights and creates an Aggregator.
func NewAggregator(cfg Config) (*Aggregator, error) {
	raw := make(map[string]float64, len(cfg.Weights))
	for kind, w := range cfg.Weights {
		raw[string(kind)] = w
	}
	weights, err := NewWeights(raw)
	if err != nil {
		return nil, err
	}
	cfg.Weights = weights
	if cfg.Thresholds == nil {
		cfg.Thresholds = Thresholds{}
	}
	return &Aggregator{config: cfg}, nil
}

// Input is everything known about one event when it is scored.
type Input struct {
	Index    int
	Event    models.LoginEvent
	Vector   models.FeatureVector
	Location *models.GeoPoint
	Travel   *models.TravelSignal
}

// ScoreBatch scores every input against the ensemble results.
// Assessments are returned in input order; events that fail to score are
// returned as unscored sentinels with a matching warning.
func (a *Aggregator) ScoreBatch(inputs []Input, results map[detection.Kind][]models.DetectorResult) ([]models.RiskAssessment, []models.Warning) {
	assessments := make([]models.RiskAssessment, len(inputs))
	var warnings []models.Warning
	for i := range inputs {
		assessment, err := a.Score(&inputs[i], results)
		if err != nil {
			logging.Warn().Err(err).Int("event_index", inputs[i].Index).Msg("Event could not be scored")
			assessment = Unscored(&inputs[i], err)
			warnings = append(warnings, models.Warning{
				Kind:       models.WarningScoringFailed,
				EventIndex: inputs[i].Index,
				IPAddress:  inputs[i].Event.IPAddress,
				Message:    err.Error(),
			})
		}
		assessments[i] = assessment
	}
	return assessments, warnings
}

// Score computes the assessment of a single event. A panic while scoring is
// converted into an error so the caller can fall back to the sentinel.
func (a *Aggregator) Score(in *Input, results map[detection.Kind][]models.DetectorResult) (assessment models.RiskAssessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring panicked: %v", r)
		}
	}()

	var (
		score    float64
		factors  []string
		detected = make([]models.DetectorResult, 0, len(detection.Kinds))
	)
	for _, kind := range detection.Kinds {
		kindResults, ok := results[kind]
		if !ok || in.Index < 0 || in.Index >= len(kindResults) {
			return models.RiskAssessment{}, fmt.Errorf("missing %s result for event %d", kind, in.Index)
		}
		r := kindResults[in.Index]
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			return models.RiskAssessment{}, fmt.Errorf("%s produced a non-finite score for event %d", kind, in.Index)
		}
		score += a.config.Weights[kind] * r.Score
		detected = append(detected, r)
		if a.contributes(kind, r) {
			factors = append(factors, string(kind))
		}
	}

	if in.Vector.ImpossibleTravel {
		score += a.config.ImpossibleTravelBoost
		factors = append(factors, models.FactorImpossibleTravel)
	}
	if in.Vector.ProxySuspect {
		score += a.config.ProxySuspectBoost
		factors = append(factors, models.FactorProxySuspect)
	}

	score = math.Round(clamp(score)*scorePrecision) / scorePrecision
	if factors == nil {
		factors = []string{}
	}

	return models.RiskAssessment{
		EventIndex:          in.Index,
		UserID:              in.Event.UserID,
		Timestamp:           in.Event.Timestamp,
		IPAddress:           in.Event.IPAddress,
		RiskScore:           score,
		Criticality:         Band(score),
		ContributingFactors: factors,
		DetectorResults:     detected,
		Location:            in.Location,
		Travel:              in.Travel,
		Scored:              true,
	}, nil
}

// contributes reports whether a detector result is a contributing factor.
// A configured threshold replaces the detector's own flag.
func (a *Aggregator) contributes(kind detection.Kind, r models.DetectorResult) bool {
	if threshold, ok := a.config.Thresholds[kind]; ok {
		return r.Score >= threshold
	}
	return r.IsAnomalous
}

// Unscored returns the sentinel assessment for an event that failed to score.
func Unscored(in *Input, cause error) models.RiskAssessment {
	return models.RiskAssessment{
		EventIndex:          in.Index,
		UserID:              in.Event.UserID,
		Timestamp:           in.Event.Timestamp,
		IPAddress:           in.Event.IPAddress,
		RiskScore:           0,
		Criticality:         models.CriticalityUnscored,
		ContributingFactors: []string{},
		Location:            in.Location,
		Travel:              in.Travel,
		Scored:              false,
		Error:               cause.Error(),
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
