// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package detection

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// Ensemble runs a fixed set of detectors over the same batch.
type Ensemble struct {
	detectors []Detector
}

// EnsembleResult holds the per-kind output of one ensemble run.
type EnsembleResult struct {
	Results  map[Kind][]models.DetectorResult
	Warnings []*DegenerateInputWarning
}

// NewEnsemble builds an ensemble with one detector per kind in Kinds order.
func NewEnsemble(cfg Config) (*Ensemble, error) {
	detectors := make([]Detector, 0, len(Kinds))
	for _, kind := range Kinds {
		d, err := New(kind, cfg)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, d)
	}
	return &Ensemble{detectors: detectors}, nil
}

// NewEnsembleWith builds an ensemble from explicit detectors.
// Each kind may appear at most once.
func NewEnsembleWith(detectors ...Detector) (*Ensemble, error) {
	seen := make(map[Kind]bool, len(detectors))
	for _, d := range detectors {
		if seen[d.Kind()] {
			return nil, fmt.Errorf("duplicate detector kind %q", d.Kind())
		}
		seen[d.Kind()] = true
	}
	return &Ensemble{detectors: detectors}, nil
}

// Kinds returns the kinds of the ensemble's detectors in run order.
func (e *Ensemble) Kinds() []Kind {
	kinds := make([]Kind, len(e.detectors))
	for i, d := range e.detectors {
		kinds[i] = d.Kind()
	}
	return kinds
}

// Run executes every detector concurrently and waits for all of them.
// Degenerate warnings are returned in detector order.
func (e *Ensemble) Run(ctx context.Context, vectors []models.FeatureVector) (*EnsembleResult, error) {
	outputs := make([]Output, len(e.detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range e.detectors {
		g.Go(func() error {
			start := time.Now()
			out, err := d.Detect(gctx, vectors)
			if err != nil {
				return fmt.Errorf("detector %s: %w", d.Kind(), err)
			}
			if len(out.Results) != len(vectors) {
				return fmt.Errorf("detector %s returned %d results for %d events",
					d.Kind(), len(out.Results), len(vectors))
			}

			anomalies := 0
			for _, r := range out.Results {
				if r.IsAnomalous {
					anomalies++
				}
			}
			metrics.RecordDetector(string(d.Kind()), time.Since(start), anomalies, out.Warning != nil)
			logging.Debug().
				Str("detector", string(d.Kind())).
				Int("events", len(vectors)).
				Int("anomalies", anomalies).
				Dur("duration", time.Since(start)).
				Msg("Detector pass complete")

			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &EnsembleResult{Results: make(map[Kind][]models.DetectorResult, len(e.detectors))}
	for i, d := range e.detectors {
		result.Results[d.Kind()] = outputs[i].Results
		if w := outputs[i].Warning; w != nil {
			logging.Warn().Str("detector", string(w.Detector)).Msg(w.Error())
			result.Warnings = append(result.Warnings, w)
		}
	}
	return result, nil
}
