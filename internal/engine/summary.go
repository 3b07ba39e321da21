// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package engine

import (
	"math"
	"sort"

	"github.com/tomtom215/loginwatch/internal/features"
	"github.com/tomtom215/loginwatch/internal/geo"
	"github.com/tomtom215/loginwatch/internal/models"
)

// summarize aggregates a scored batch. Averages cover scored events only.
func summarize(
	events []models.LoginEvent,
	vectors []models.FeatureVector,
	assessments []models.RiskAssessment,
	analysis *geo.Analysis,
	riskThreshold, anomalyThreshold float64,
) models.BatchSummary {
	summary := models.BatchSummary{
		TotalEvents:   len(events),
		HighRiskUsers: []string{},
		ByCriticality: map[models.Criticality]int{
			models.CriticalityLow:      0,
			models.CriticalityMedium:   0,
			models.CriticalityHigh:     0,
			models.CriticalityCritical: 0,
		},
		Users: features.Profiles(events),
	}

	users := make(map[string]struct{})
	ips := make(map[string]struct{})
	for i := range events {
		users[events[i].UserID] = struct{}{}
		ips[events[i].IPAddress] = struct{}{}
	}
	summary.UniqueUsers = len(users)
	summary.UniqueIPs = len(ips)

	for i := range vectors {
		if vectors[i].ImpossibleTravel {
			summary.ImpossibleTravel++
		}
		if vectors[i].ProxySuspect {
			summary.ProxySuspects++
		}
	}

	highRisk := make(map[string]struct{})
	var total float64
	for i := range assessments {
		a := &assessments[i]
		summary.ByCriticality[a.Criticality]++
		if !a.Scored {
			summary.UnscoredEvents++
			continue
		}
		summary.ScoredEvents++
		total += a.RiskScore
		if a.RiskScore >= anomalyThreshold {
			summary.AnomaliesFound++
		}
		if a.RiskScore >= riskThreshold {
			highRisk[a.UserID] = struct{}{}
		}
	}
	if summary.ScoredEvents > 0 {
		summary.AverageRiskScore = math.Round(total/float64(summary.ScoredEvents)*1e4) / 1e4
	}

	for user := range highRisk {
		summary.HighRiskUsers = append(summary.HighRiskUsers, user)
	}
	sort.Strings(summary.HighRiskUsers)

	if analysis != nil {
		summary.Geography = analysis.Patterns
	}
	return summary
}
