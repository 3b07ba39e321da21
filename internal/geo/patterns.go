// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"math"
	"sort"

	"github.com/tomtom215/loginwatch/internal/features"
	"github.com/tomtom215/loginwatch/internal/models"
)

// buildPattern summarizes where one user logged in from.
func buildPattern(user features.UserEvents, locations []*models.GeoPoint, signals []models.TravelSignal) models.UserGeography {
	pattern := models.UserGeography{
		UserID:    user.UserID,
		Countries: []string{},
		Cities:    []string{},
	}
	countries := make(map[string]struct{})
	cities := make(map[string]struct{})

	for _, idx := range user.Indices {
		loc := locations[idx]
		if loc != nil && loc.IsProxySuspect {
			pattern.ProxySuspectEvents++
		}
		if !loc.Known() {
			pattern.UnknownEvents++
			continue
		}
		pattern.ResolvedEvents++
		if loc.Country != "" {
			countries[loc.Country] = struct{}{}
		}
		if loc.City != "" {
			cities[loc.City] = struct{}{}
		}
	}

	for _, s := range signals {
		pattern.MaxDistanceKm = math.Max(pattern.MaxDistanceKm, s.DistanceKm)
		pattern.MaxSpeedKmH = math.Max(pattern.MaxSpeedKmH, s.ImpliedSpeedKmH)
		if s.IsImpossibleTravel {
			pattern.ImpossibleTravelHops++
		}
	}

	pattern.Countries = sortedKeys(countries)
	pattern.Cities = sortedKeys(cities)
	return pattern
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
