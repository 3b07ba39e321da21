// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/loginwatch/internal/detection"
)

// weightSumTolerance is how far the weight sum may drift from 1.
const weightSumTolerance = 1e-6

// InvalidWeightConfigError reports detector weights that cannot be used.
// It is raised at configuration time, before any event is processed.
type InvalidWeightConfigError struct {
	Weights map[string]float64
	Reason  string
}

func (e *InvalidWeightConfigError) Error() string {
	return fmt.Sprintf("invalid detector weights %s: %s", formatWeights(e.Weights), e.Reason)
}

func formatWeights(w map[string]float64) string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%g", name, w[name])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Weights maps each detector kind to its contribution to the risk score.
type Weights map[detection.Kind]float64

// DefaultWeights returns density 0.4, cluster 0.3, statistical 0.3.
func DefaultWeights() Weights {
	return Weights{
		detection.KindDensityOutlier:  0.4,
		detection.KindClusterOutlier:  0.3,
		detection.KindStatisticalRule: 0.3,
	}
}

// NewWeights validates raw weights keyed by detector name. Every detector
// kind must be present with a finite weight in [0,1] and the weights must
// sum to 1.
func NewWeights(raw map[string]float64) (Weights, error) {
	invalid := func(format string, args ...interface{}) error {
		return &InvalidWeightConfigError{Weights: raw, Reason: fmt.Sprintf(format, args...)}
	}

	if len(raw) == 0 {
		return nil, invalid("no weights configured")
	}

	weights := make(Weights, len(raw))
	for name, w := range raw {
		kind, err := detection.ParseKind(name)
		if err != nil {
			return nil, invalid("unknown detector %q", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, invalid("weight for %s is not finite", name)
		}
		if w < 0 || w > 1 {
			return nil, invalid("weight for %s must be within [0,1]", name)
		}
		weights[kind] = w
	}

	var sum float64
	for _, kind := range detection.Kinds {
		w, ok := weights[kind]
		if !ok {
			return nil, invalid("missing weight for %s", kind)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return nil, invalid("weights sum to %g, want 1", sum)
	}
	return weights, nil
}

// Thresholds optionally sets, per detector kind, the score at which the
// detector counts as a contributing factor regardless of its own flag.
type Thresholds map[detection.Kind]float64

// NewThresholds validates raw thresholds keyed by detector name.
// An empty or nil map is valid and yields no overrides.
func NewThresholds(raw map[string]float64) (Thresholds, error) {
	thresholds := make(Thresholds, len(raw))
	for name, v := range raw {
		kind, err := detection.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("detector threshold: %w", err)
		}
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, fmt.Errorf("detector threshold for %s must be within [0,1], got %g", name, v)
		}
		thresholds[kind] = v
	}
	return thresholds, nil
}
