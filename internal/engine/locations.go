// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package engine

import (
	"context"
	"math"
	"sort"

	"github.com/tomtom215/loginwatch/internal/detection"
	"github.com/tomtom215/loginwatch/internal/models"
)

// Location clustering runs over raw coordinates: 0.5 degrees is roughly
// 50 km at the equator.
const (
	locationClusterEps       = 0.5
	locationClusterMinLogins = 2
)

// site is one distinct coordinate pair and the assessments located there.
type site struct {
	lat, lon float64
	members  []int
}

// locationClusters groups the resolved login locations of a batch with
// DBSCAN. Identical coordinates are collapsed into one weighted point, so
// the cost follows the number of distinct locations rather than logins.
// Clusters are ordered by login count, largest first.
func locationClusters(ctx context.Context, assessments []models.RiskAssessment) ([]models.LocationCluster, error) {
	var sites []*site
	byCoord := make(map[[2]float64]*site)
	logins := 0
	for i := range assessments {
		loc := assessments[i].Location
		if !loc.Known() {
			continue
		}
		key := [2]float64{loc.Latitude, loc.Longitude}
		s, ok := byCoord[key]
		if !ok {
			s = &site{lat: loc.Latitude, lon: loc.Longitude}
			byCoord[key] = s
			sites = append(sites, s)
		}
		s.members = append(s.members, i)
		logins++
	}
	if logins < locationClusterMinLogins {
		return nil, nil
	}

	rows := make([][]float64, len(sites))
	weights := make([]int, len(sites))
	for i, s := range sites {
		rows[i] = []float64{s.lat, s.lon}
		weights[i] = len(s.members)
	}
	labels, n, err := detection.DBSCAN(ctx, rows, weights, locationClusterEps, locationClusterMinLogins)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	clusters := make([]models.LocationCluster, n)
	users := make([]map[string]struct{}, n)
	countries := make([]map[string]struct{}, n)
	cities := make([]map[string]struct{}, n)
	riskSums := make([]float64, n)
	scored := make([]int, n)
	for c := range clusters {
		clusters[c].ClusterID = c
		users[c] = make(map[string]struct{})
		countries[c] = make(map[string]struct{})
		cities[c] = make(map[string]struct{})
	}

	for i, s := range sites {
		c := labels[i]
		if c == detection.NoiseLabel {
			continue
		}
		cl := &clusters[c]
		for _, idx := range s.members {
			a := &assessments[idx]
			cl.LoginCount++
			cl.CenterLat += s.lat
			cl.CenterLon += s.lon
			users[c][a.UserID] = struct{}{}
			if a.Location.Country != "" {
				countries[c][a.Location.Country] = struct{}{}
			}
			if a.Location.City != "" {
				cities[c][a.Location.City] = struct{}{}
			}
			if a.Scored {
				riskSums[c] += a.RiskScore
				scored[c]++
			}
		}
	}

	for c := range clusters {
		cl := &clusters[c]
		cl.CenterLat /= float64(cl.LoginCount)
		cl.CenterLon /= float64(cl.LoginCount)
		cl.UniqueUsers = len(users[c])
		cl.Countries = sortedSet(countries[c])
		cl.Cities = sortedSet(cities[c])
		if scored[c] > 0 {
			cl.AvgRiskScore = math.Round(riskSums[c]/float64(scored[c])*1e4) / 1e4
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].LoginCount > clusters[j].LoginCount
	})
	return clusters, nil
}

// countryRisk returns the mean risk per country over scored, resolved
// logins, sorted by country name.
func countryRisk(assessments []models.RiskAssessment) []models.CountryRisk {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range assessments {
		a := &assessments[i]
		if !a.Scored || !a.Location.Known() || a.Location.Country == "" {
			continue
		}
		sums[a.Location.Country] += a.RiskScore
		counts[a.Location.Country]++
	}
	if len(counts) == 0 {
		return nil
	}

	out := make([]models.CountryRisk, 0, len(counts))
	for country, n := range counts {
		out = append(out, models.CountryRisk{
			Country:  country,
			Logins:   n,
			MeanRisk: math.Round(sums[country]/float64(n)*1e3) / 1e3,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
