// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package features

import (
	"math"
	"time"

	"github.com/tomtom215/loginwatch/internal/models"
)

// Business hours used by the profile ratio, [start, end) in UTC.
const (
	businessHoursStart = 9
	businessHoursEnd   = 17
)

// Profiles builds per-user login statistics, sorted by user ID.
func Profiles(events []models.LoginEvent) []models.UserProfile {
	groups := GroupByUser(events)
	profiles := make([]models.UserProfile, 0, len(groups))

	for _, group := range groups {
		ips := make(map[string]struct{})
		browsers := make(map[string]struct{})
		systems := make(map[string]struct{})
		hours := make([]float64, 0, len(group.Indices))
		var weekend, business int

		for _, idx := range group.Indices {
			event := events[idx]
			ts := event.Timestamp.UTC()
			ua := ParseUserAgent(event.UserAgent)

			ips[event.IPAddress] = struct{}{}
			browsers[ua.Browser] = struct{}{}
			systems[ua.OS] = struct{}{}
			hours = append(hours, float64(ts.Hour()))

			if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
				weekend++
			}
			if ts.Hour() >= businessHoursStart && ts.Hour() < businessHoursEnd {
				business++
			}
		}

		count := len(group.Indices)
		first := events[group.Indices[0]].Timestamp.UTC()
		last := events[group.Indices[count-1]].Timestamp.UTC()
		days := math.Max(1, math.Ceil(last.Sub(first).Hours()/24))
		mean, std := meanStd(hours)

		profiles = append(profiles, models.UserProfile{
			UserID:             group.UserID,
			LoginCount:         count,
			UniqueIPs:          len(ips),
			UniqueBrowsers:     len(browsers),
			UniqueOS:           len(systems),
			HourMean:           round2(mean),
			HourStdDev:         round2(std),
			WeekendRatio:       round2(float64(weekend) / float64(count)),
			BusinessHoursRatio: round2(float64(business) / float64(count)),
			LoginsPerDay:       round2(float64(count) / days),
			FirstSeen:          first,
			LastSeen:           last,
		})
	}
	return profiles
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
