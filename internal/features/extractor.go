// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package features

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// minHourStdDev keeps the hour z-score finite for users who always log in
// at the same hour.
const minHourStdDev = 1.0

// Config configures the Extractor.
type Config struct {
	// MinHistory is the number of earlier logins required before a user's
	// hour baseline is trusted.
	MinHistory int

	// IPWindow is the rolling window for counting distinct IPs.
	IPWindow time.Duration
}

// DefaultConfig returns MinHistory 5 and a 24h IP window.
func DefaultConfig() Config {
	return Config{
		MinHistory: 5,
		IPWindow:   24 * time.Hour,
	}
}

// Extractor derives feature vectors from login events.
type Extractor struct {
	config Config
}

// NewExtractor creates an Extractor. Non-positive settings fall back to defaults.
func NewExtractor(cfg Config) *Extractor {
	defaults := DefaultConfig()
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = defaults.MinHistory
	}
	if cfg.IPWindow <= 0 {
		cfg.IPWindow = defaults.IPWindow
	}
	return &Extractor{config: cfg}
}

// Report counts the events whose features fell back to neutral values.
type Report struct {
	InsufficientHistory int
}

// Extract returns one feature vector per event, in input order.
func (e *Extractor) Extract(events []models.LoginEvent) ([]models.FeatureVector, Report) {
	vectors := make([]models.FeatureVector, len(events))
	var report Report

	for _, user := range GroupByUser(events) {
		report.InsufficientHistory += e.extractUser(events, user.Indices, vectors)
	}

	if report.InsufficientHistory > 0 {
		metrics.InsufficientHistoryTotal.Add(float64(report.InsufficientHistory))
		logging.Debug().
			Int("events", report.InsufficientHistory).
			Int("min_history", e.config.MinHistory).
			Msg("Hour baseline unavailable, using neutral z-score")
	}
	return vectors, report
}

// extractUser fills the vectors of one user's events (indices sorted by time)
// and returns how many had no hour baseline.
func (e *Extractor) extractUser(events []models.LoginEvent, indices []int, vectors []models.FeatureVector) int {
	fallbackInterval := medianInterval(events, indices)

	seenIPs := make(map[string]bool)
	seenUAs := make(map[string]bool)
	hours := make([]float64, 0, len(indices))
	insufficient := 0
	windowStart := 0

	for pos, idx := range indices {
		event := events[idx]
		ts := event.Timestamp.UTC()
		hour := float64(ts.Hour()) + float64(ts.Minute())/60 + float64(ts.Second())/3600
		angle := 2 * math.Pi * hour / 24
		ua := ParseUserAgent(event.UserAgent)

		v := models.FeatureVector{
			EventIndex:   idx,
			UserID:       event.UserID,
			Hour:         hour,
			HourSin:      math.Sin(angle),
			HourCos:      math.Cos(angle),
			Weekend:      ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday,
			HistoryCount: pos,
			Established:  pos >= e.config.MinHistory,
			Browser:      ua.Browser,
			OS:           ua.OS,
			Device:       ua.Device,
		}

		if pos == 0 {
			v.IntervalHours = fallbackInterval
			// First-ever login: everything about it is new.
			v.IPNovel = true
			v.UANovel = true
		} else {
			v.IntervalHours = ts.Sub(events[indices[pos-1]].Timestamp).Hours()
			v.HasInterval = true
			v.IPNovel = !seenIPs[event.IPAddress]
			v.UANovel = !seenUAs[event.UserAgent]
		}

		for windowStart < pos && ts.Sub(events[indices[windowStart]].Timestamp) >= e.config.IPWindow {
			windowStart++
		}
		v.DistinctIPsWindow = distinctIPs(events, indices[windowStart:pos+1])

		z, err := hourZScore(event.UserID, hours, hour, e.config.MinHistory)
		var insufficientErr *InsufficientDataError
		switch {
		case errors.As(err, &insufficientErr):
			insufficient++
		case err == nil:
			v.HourZScore = z
		}

		seenIPs[event.IPAddress] = true
		seenUAs[event.UserAgent] = true
		hours = append(hours, hour)
		vectors[idx] = v
	}
	return insufficient
}

// hourZScore returns the z-score of hour against the prior login hours.
func hourZScore(userID string, prior []float64, hour float64, minHistory int) (float64, error) {
	if len(prior) < minHistory {
		return 0, &InsufficientDataError{UserID: userID, Have: len(prior), Need: minHistory}
	}
	mean, std := meanStd(prior)
	return (hour - mean) / math.Max(std, minHourStdDev), nil
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// medianInterval returns the median gap in hours between consecutive logins,
// or 0 for a single login.
func medianInterval(events []models.LoginEvent, indices []int) float64 {
	if len(indices) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(indices)-1)
	for i := 1; i < len(indices); i++ {
		gaps = append(gaps, events[indices[i]].Timestamp.Sub(events[indices[i-1]].Timestamp).Hours())
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 0 {
		return (gaps[mid-1] + gaps[mid]) / 2
	}
	return gaps[mid]
}

func distinctIPs(events []models.LoginEvent, indices []int) int {
	seen := make(map[string]struct{}, len(indices))
	for _, idx := range indices {
		seen[events[idx].IPAddress] = struct{}{}
	}
	return len(seen)
}

// UserEvents is one user's event indices in timestamp order.
type UserEvents struct {
	UserID  string
	Indices []int
}

// GroupByUser groups event indices by user. Users are returned sorted by ID;
// each user's indices are sorted by timestamp, ties keeping input order.
func GroupByUser(events []models.LoginEvent) []UserEvents {
	byUser := make(map[string][]int)
	for i, event := range events {
		byUser[event.UserID] = append(byUser[event.UserID], i)
	}

	users := make([]UserEvents, 0, len(byUser))
	for userID, indices := range byUser {
		sort.SliceStable(indices, func(a, b int) bool {
			return events[indices[a]].Timestamp.Before(events[indices[b]].Timestamp)
		})
		users = append(users, UserEvents{UserID: userID, Indices: indices})
	}
	sort.Slice(users, func(a, b int) bool { return users[a].UserID < users[b].UserID })
	return users
}

// FillGeo copies geolocation results into the vectors' geo slot.
// locations and travel are indexed by event index; nil entries leave the
// slot empty. travel[i] is the move that arrives at event i.
func FillGeo(vectors []models.FeatureVector, locations []*models.GeoPoint, travel []*models.TravelSignal) {
	for i := range vectors {
		idx := vectors[i].EventIndex
		if idx < len(locations) {
			if loc := locations[idx]; loc != nil {
				vectors[i].GeoKnown = loc.Known()
				vectors[i].ProxySuspect = loc.IsProxySuspect
			}
		}
		if idx < len(travel) {
			if t := travel[idx]; t != nil {
				vectors[i].DistanceKm = t.DistanceKm
				vectors[i].SpeedKmH = t.ImpliedSpeedKmH
				vectors[i].ImpossibleTravel = t.IsImpossibleTravel
			}
		}
	}
}
