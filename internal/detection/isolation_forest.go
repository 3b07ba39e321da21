// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package detection

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/loginwatch/internal/models"
)

// eulerGamma is the Euler-Mascheroni constant used by the harmonic number approximation.
const eulerGamma = 0.5772156649

// IsolationForestConfig configures the density-outlier detector.
type IsolationForestConfig struct {
	// Trees is the number of isolation trees in the forest.
	Trees int

	// SampleSize is the sub-sample drawn for each tree (capped at the batch size).
	SampleSize int

	// MinSamples is the minimum batch size required to fit the forest.
	MinSamples int

	// Contamination is the expected fraction of anomalies in the batch.
	Contamination float64

	// Seed makes the forest reproducible.
	Seed int64
}

// DefaultIsolationForestConfig returns the defaults.
func DefaultIsolationForestConfig() IsolationForestConfig {
	return IsolationForestConfig{
		Trees:         100,
		SampleSize:    256,
		MinSamples:    10,
		Contamination: 0.1,
		Seed:          42,
	}
}

// DensityOutlierDetector is an isolation forest over standardized features.
type DensityOutlierDetector struct {
	config IsolationForestConfig
}

// NewDensityOutlierDetector creates the density-outlier detector.
func NewDensityOutlierDetector(cfg IsolationForestConfig) *DensityOutlierDetector {
	defaults := DefaultIsolationForestConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = defaults.Trees
	}
	if cfg.SampleSize <= 1 {
		cfg.SampleSize = defaults.SampleSize
	}
	if cfg.MinSamples <= 1 {
		cfg.MinSamples = defaults.MinSamples
	}
	if cfg.Contamination <= 0 || cfg.Contamination >= 0.5 {
		cfg.Contamination = defaults.Contamination
	}
	return &DensityOutlierDetector{config: cfg}
}

// Kind implements Detector.
func (d *DensityOutlierDetector) Kind() Kind { return KindDensityOutlier }

func (d *DensityOutlierDetector) sealed() {}

// Detect implements Detector.
func (d *DensityOutlierDetector) Detect(ctx context.Context, vectors []models.FeatureVector) (Output, error) {
	n := len(vectors)
	if n < d.config.MinSamples {
		return neutralOutput(KindDensityOutlier, n, &DegenerateInputWarning{
			Detector: KindDensityOutlier,
			Samples:  n,
			Required: d.config.MinSamples,
			Reason:   "too few samples to fit isolation forest",
		}), nil
	}

	rows, varying := standardize(featureMatrix(vectors))
	if !varying {
		return neutralOutput(KindDensityOutlier, n, &DegenerateInputWarning{
			Detector: KindDensityOutlier,
			Samples:  n,
			Reason:   "all features are constant",
		}), nil
	}

	forest, err := d.fit(ctx, rows)
	if err != nil {
		return Output{}, err
	}

	raw := make([]float64, n)
	for i, row := range rows {
		raw[i] = forest.score(row)
	}

	cutoff := contaminationCutoff(raw, d.config.Contamination)
	scores := append([]float64(nil), raw...)
	normalizeScores(scores)

	// All points isolate equally: no outlier structure to report.
	if allZero(scores) {
		return neutralOutput(KindDensityOutlier, n, &DegenerateInputWarning{
			Detector: KindDensityOutlier,
			Samples:  n,
			Reason:   "isolation scores have no spread",
		}), nil
	}

	results := make([]models.DetectorResult, n)
	for i := range results {
		results[i] = models.DetectorResult{
			Detector:    string(KindDensityOutlier),
			Score:       scores[i],
			IsAnomalous: raw[i] >= cutoff,
		}
	}
	return Output{Results: results}, nil
}

// contaminationCutoff returns the k-th largest raw score where
// k = ceil(contamination * n), minimum 1.
func contaminationCutoff(raw []float64, contamination float64) float64 {
	sorted := append([]float64(nil), raw...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	k := int(math.Ceil(contamination * float64(len(sorted))))
	if k < 1 {
		k = 1
	}
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[k-1]
}

func allZero(scores []float64) bool {
	for _, s := range scores {
		if s != 0 {
			return false
		}
	}
	return true
}

// isolationForest is a fitted forest.
type isolationForest struct {
	trees      []*isolationNode
	sampleSize int
}

// isolationNode is either an internal split or a leaf holding size points.
type isolationNode struct {
	feature int
	split   float64
	left    *isolationNode
	right   *isolationNode
	size    int
}

func (d *DensityOutlierDetector) fit(ctx context.Context, rows [][]float64) (*isolationForest, error) {
	rng := rand.New(rand.NewSource(d.config.Seed)) //nolint:gosec // reproducible model, not security sensitive
	psi := d.config.SampleSize
	if psi > len(rows) {
		psi = len(rows)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(psi))))

	forest := &isolationForest{
		trees:      make([]*isolationNode, d.config.Trees),
		sampleSize: psi,
	}
	for t := range forest.trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample := make([][]float64, psi)
		for i, idx := range rng.Perm(len(rows))[:psi] {
			sample[i] = rows[idx]
		}
		forest.trees[t] = buildIsolationTree(rng, sample, 0, maxDepth)
	}
	return forest, nil
}

func buildIsolationTree(rng *rand.Rand, rows [][]float64, depth, maxDepth int) *isolationNode {
	if depth >= maxDepth || len(rows) <= 1 {
		return &isolationNode{size: len(rows)}
	}

	// Only split on dimensions that still vary within this node.
	dims := len(rows[0])
	candidates := make([]int, 0, dims)
	lows := make([]float64, dims)
	highs := make([]float64, dims)
	for j := 0; j < dims; j++ {
		lo, hi := rows[0][j], rows[0][j]
		for _, row := range rows[1:] {
			lo = math.Min(lo, row[j])
			hi = math.Max(hi, row[j])
		}
		lows[j], highs[j] = lo, hi
		if hi > lo {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &isolationNode{size: len(rows)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := lows[feature] + rng.Float64()*(highs[feature]-lows[feature])

	var left, right [][]float64
	for _, row := range rows {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &isolationNode{
		feature: feature,
		split:   split,
		left:    buildIsolationTree(rng, left, depth+1, maxDepth),
		right:   buildIsolationTree(rng, right, depth+1, maxDepth),
	}
}

// score returns 2^(-E[h(x)]/c(psi)); values near 1 are anomalous.
func (f *isolationForest) score(row []float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, row, 0)
	}
	mean := total / float64(len(f.trees))
	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		return 0
	}
	return math.Pow(2, -mean/norm)
}

func pathLength(node *isolationNode, row []float64, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + averagePathLength(node.size)
	}
	if row[node.feature] < node.split {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	harmonic := math.Log(fn-1) + eulerGamma
	return 2*harmonic - 2*(fn-1)/fn
}
