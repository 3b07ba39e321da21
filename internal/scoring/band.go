// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package scoring

import "github.com/tomtom215/loginwatch/internal/models"

// Band lower edges. Each edge belongs to the band above it.
const (
	MediumThreshold   = 0.4
	HighThreshold     = 0.6
	CriticalThreshold = 0.8
)

// Band maps a risk score in [0,1] to its criticality.
func Band(score float64) models.Criticality {
	switch {
	case score >= CriticalThreshold:
		return models.CriticalityCritical
	case score >= HighThreshold:
		return models.CriticalityHigh
	case score >= MediumThreshold:
		return models.CriticalityMedium
	default:
		return models.CriticalityLow
	}
}
