// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package detection

import (
	"math"
)

// varianceEpsilon is the standard deviation below which a column is treated as constant.
const varianceEpsilon = 1e-12

// standardize returns a z-scored copy of rows (population standard deviation).
// Constant columns become 0. The second return value is false when every
// column is constant.
func standardize(rows [][]float64) ([][]float64, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	dims := len(rows[0])
	n := float64(len(rows))

	means := make([]float64, dims)
	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}

	stds := make([]float64, dims)
	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}

	varying := false
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] > varianceEpsilon {
			varying = true
		}
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, dims)
		for j, v := range row {
			if stds[j] > varianceEpsilon {
				scaled[j] = (v - means[j]) / stds[j]
			}
		}
		out[i] = scaled
	}
	return out, varying
}

// normalizeScores min-max scales scores to [0,1] in place.
// When all scores are equal they are set to 0.
func normalizeScores(scores []float64) {
	if len(scores) == 0 {
		return
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	spread := hi - lo
	for i, s := range scores {
		if spread <= varianceEpsilon {
			scores[i] = 0
			continue
		}
		scores[i] = (s - lo) / spread
	}
}

// euclidean returns the Euclidean distance between two equal-length vectors.
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
