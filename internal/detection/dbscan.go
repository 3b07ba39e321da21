// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package detection

import (
	"context"
	"math"

	"github.com/tomtom215/loginwatch/internal/models"
)

// DBSCANConfig configures the cluster-outlier detector.
type DBSCANConfig struct {
	// Eps is the neighborhood radius in standardized feature space.
	Eps float64

	// MinSamples is the neighborhood size (including the point) that makes a core point.
	MinSamples int

	// BaselineScore is assigned to clustered points and is the floor for noise points.
	BaselineScore float64
}

// DefaultDBSCANConfig returns the defaults.
func DefaultDBSCANConfig() DBSCANConfig {
	return DBSCANConfig{
		Eps:           0.5,
		MinSamples:    5,
		BaselineScore: 0,
	}
}

// ClusterOutlierDetector flags DBSCAN noise points.
type ClusterOutlierDetector struct {
	config DBSCANConfig
}

// NewClusterOutlierDetector creates the cluster-outlier detector.
func NewClusterOutlierDetector(cfg DBSCANConfig) *ClusterOutlierDetector {
	defaults := DefaultDBSCANConfig()
	if cfg.Eps <= 0 {
		cfg.Eps = defaults.Eps
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = defaults.MinSamples
	}
	if cfg.BaselineScore < 0 || cfg.BaselineScore > 1 {
		cfg.BaselineScore = defaults.BaselineScore
	}
	return &ClusterOutlierDetector{config: cfg}
}

// Kind implements Detector.
func (d *ClusterOutlierDetector) Kind() Kind { return KindClusterOutlier }

func (d *ClusterOutlierDetector) sealed() {}

// NoiseLabel is the DBSCAN label of a point that belongs to no cluster.
const NoiseLabel = -1

const labelUnvisited = -2

// Detect implements Detector.
func (d *ClusterOutlierDetector) Detect(ctx context.Context, vectors []models.FeatureVector) (Output, error) {
	n := len(vectors)
	if n < d.config.MinSamples {
		return neutralOutput(KindClusterOutlier, n, &DegenerateInputWarning{
			Detector: KindClusterOutlier,
			Samples:  n,
			Required: d.config.MinSamples,
			Reason:   "too few samples to form a cluster",
		}), nil
	}

	rows, varying := standardize(featureMatrix(vectors))
	if !varying {
		return neutralOutput(KindClusterOutlier, n, &DegenerateInputWarning{
			Detector: KindClusterOutlier,
			Samples:  n,
			Reason:   "all features are constant",
		}), nil
	}

	labels, clusters, err := DBSCAN(ctx, rows, nil, d.config.Eps, d.config.MinSamples)
	if err != nil {
		return Output{}, err
	}
	if clusters == 0 {
		return neutralOutput(KindClusterOutlier, n, &DegenerateInputWarning{
			Detector: KindClusterOutlier,
			Samples:  n,
			Reason:   "no cluster formed",
		}), nil
	}

	centroids := clusterCentroids(rows, labels, clusters)

	distances := make([]float64, n)
	var maxNoise float64
	for i, label := range labels {
		if label != NoiseLabel {
			continue
		}
		nearest := math.Inf(1)
		for _, c := range centroids {
			nearest = math.Min(nearest, euclidean(rows[i], c))
		}
		distances[i] = nearest
		maxNoise = math.Max(maxNoise, nearest)
	}

	results := make([]models.DetectorResult, n)
	for i, label := range labels {
		result := models.DetectorResult{
			Detector: string(KindClusterOutlier),
			Score:    d.config.BaselineScore,
		}
		if label == NoiseLabel {
			result.IsAnomalous = true
			if maxNoise > 0 {
				result.Score = math.Max(d.config.BaselineScore, distances[i]/maxNoise)
			}
		}
		results[i] = result
	}
	return Output{Results: results}, nil
}

// DBSCAN clusters rows by Euclidean distance with brute-force neighbor
// search, visiting points in input order. It returns a label per row
// (cluster id or NoiseLabel) and the number of clusters.
//
// weights, when non-nil, is the multiplicity of each row, so callers can
// collapse identical points first: a row is a core point when the total
// weight within eps, itself included, reaches minSamples.
func DBSCAN(ctx context.Context, rows [][]float64, weights []int, eps float64, minSamples int) ([]int, int, error) {
	labels := make([]int, len(rows))
	for i := range labels {
		labels[i] = labelUnvisited
	}

	clusterID := 0
	for i := range rows {
		if labels[i] != labelUnvisited {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		neighbors, mass := regionQuery(rows, weights, i, eps)
		if mass < minSamples {
			labels[i] = NoiseLabel
			continue
		}

		labels[i] = clusterID
		queue := append([]int(nil), neighbors...)
		for q := 0; q < len(queue); q++ {
			j := queue[q]
			if labels[j] == NoiseLabel {
				labels[j] = clusterID // border point
			}
			if labels[j] != labelUnvisited {
				continue
			}
			labels[j] = clusterID
			if more, m := regionQuery(rows, weights, j, eps); m >= minSamples {
				queue = append(queue, more...)
			}
		}
		clusterID++
	}
	return labels, clusterID, nil
}

// regionQuery returns every row within eps of rows[i], including i, and
// their total weight.
func regionQuery(rows [][]float64, weights []int, i int, eps float64) ([]int, int) {
	var out []int
	mass := 0
	for j := range rows {
		if euclidean(rows[i], rows[j]) <= eps {
			out = append(out, j)
			if weights == nil {
				mass++
			} else {
				mass += weights[j]
			}
		}
	}
	return out, mass
}

// clusterCentroids returns the member mean of each cluster.
func clusterCentroids(rows [][]float64, labels []int, clusters int) [][]float64 {
	dims := len(rows[0])
	sums := make([][]float64, clusters)
	counts := make([]int, clusters)
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, label := range labels {
		if label < 0 {
			continue
		}
		counts[label]++
		for j, v := range rows[i] {
			sums[label][j] += v
		}
	}
	for c := range sums {
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	return sums
}
