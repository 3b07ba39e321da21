// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package detection

import (
	"context"
	"fmt"

	"github.com/tomtom215/loginwatch/internal/models"
)

// Kind identifies a detector variant.
type Kind string

const (
	// KindDensityOutlier scores points by how easily an isolation forest separates them.
	KindDensityOutlier Kind = "density_outlier"

	// KindClusterOutlier scores DBSCAN noise points by distance to the nearest cluster.
	KindClusterOutlier Kind = "cluster_outlier"

	// KindStatisticalRule scores the fraction of threshold rules an event triggers.
	KindStatisticalRule Kind = "statistical_rule"
)

// Kinds lists every detector kind in canonical order.
var Kinds = []Kind{KindDensityOutlier, KindClusterOutlier, KindStatisticalRule}

// ParseKind converts a configuration name to a Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown detector %q", name)
}

// Detector scores a batch of feature vectors.
//
// Detect returns one result per vector in input order. A degenerate input is
// reported through Output.Warning, never as an error; errors are reserved for
// cancellation.
type Detector interface {
	Kind() Kind
	Detect(ctx context.Context, vectors []models.FeatureVector) (Output, error)

	// sealed keeps the set of detector kinds closed to this package.
	sealed()
}

// Output is what a detector produces for one batch.
type Output struct {
	Results []models.DetectorResult
	Warning *DegenerateInputWarning
}

// DegenerateInputWarning reports that a detector fell back to neutral scores.
type DegenerateInputWarning struct {
	Detector Kind
	Samples  int
	Required int
	Reason   string
}

func (w *DegenerateInputWarning) Error() string {
	if w.Required > 0 {
		return fmt.Sprintf("%s: %s (have %d samples, need %d); scores set to neutral",
			w.Detector, w.Reason, w.Samples, w.Required)
	}
	return fmt.Sprintf("%s: %s; scores set to neutral", w.Detector, w.Reason)
}

// neutralOutput returns score-0 results for every vector plus the warning.
func neutralOutput(kind Kind, n int, warning *DegenerateInputWarning) Output {
	results := make([]models.DetectorResult, n)
	for i := range results {
		results[i] = models.DetectorResult{Detector: string(kind)}
	}
	return Output{Results: results, Warning: warning}
}

// Config groups the configuration of every detector kind.
type Config struct {
	IsolationForest IsolationForestConfig
	DBSCAN          DBSCANConfig
	Statistical     StatisticalConfig
}

// DefaultConfig returns defaults for all detectors.
func DefaultConfig() Config {
	return Config{
		IsolationForest: DefaultIsolationForestConfig(),
		DBSCAN:          DefaultDBSCANConfig(),
		Statistical:     DefaultStatisticalConfig(),
	}
}

// New constructs the detector of the given kind.
func New(kind Kind, cfg Config) (Detector, error) {
	switch kind {
	case KindDensityOutlier:
		return NewDensityOutlierDetector(cfg.IsolationForest), nil
	case KindClusterOutlier:
		return NewClusterOutlierDetector(cfg.DBSCAN), nil
	case KindStatisticalRule:
		return NewStatisticalRuleDetector(cfg.Statistical), nil
	default:
		return nil, fmt.Errorf("unknown detector kind %q", kind)
	}
}

// featureMatrix returns the numeric rows of the vectors.
func featureMatrix(vectors []models.FeatureVector) [][]float64 {
	rows := make([][]float64, len(vectors))
	for i := range vectors {
		rows[i] = vectors[i].Values()
	}
	return rows
}
