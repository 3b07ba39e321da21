// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package engine

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/tomtom215/loginwatch/internal/geo"
	"github.com/tomtom215/loginwatch/internal/models"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	phoneUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"
)

var (
	scenarioStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// alice alternates between two home connections in London.
	homePoints = []models.GeoPoint{
		{IPAddress: "81.2.69.142", Latitude: 51.5074, Longitude: -0.1278, Country: "United Kingdom", CountryCode: "GB", City: "London", ISP: "British Telecom", ASN: 2856},
		{IPAddress: "81.2.69.160", Latitude: 51.5074, Longitude: -0.1278, Country: "United Kingdom", CountryCode: "GB", City: "London", ISP: "British Telecom", ASN: 2856},
	}
)

// hijack is a login from abroad minutes after a routine London login.
type hijack struct {
	day, hour, minute int
	point             models.GeoPoint
	userAgent         string
}

var hijacks = []hijack{
	{3, 9, 10, models.GeoPoint{IPAddress: "203.0.113.10", Latitude: 35.6762, Longitude: 139.6503, Country: "Japan", CountryCode: "JP", City: "Tokyo", ISP: "NTT", ASN: 4713},
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"},
	{9, 12, 15, models.GeoPoint{IPAddress: "203.0.113.11", Latitude: -33.8688, Longitude: 151.2093, Country: "Australia", CountryCode: "AU", City: "Sydney", ISP: "Telstra", ASN: 1221},
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"},
	{15, 15, 20, models.GeoPoint{IPAddress: "203.0.113.12", Latitude: -23.5505, Longitude: -46.6333, Country: "Brazil", CountryCode: "BR", City: "Sao Paulo", ISP: "Vivo", ASN: 26599},
		"Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36"},
	{21, 9, 5, models.GeoPoint{IPAddress: "203.0.113.13", Latitude: 40.7128, Longitude: -74.0060, Country: "United States", CountryCode: "US", City: "New York", ISP: "Verizon", ASN: 701},
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15"},
	{27, 12, 25, models.GeoPoint{IPAddress: "203.0.113.14", Latitude: -26.2041, Longitude: 28.0473, Country: "South Africa", CountryCode: "ZA", City: "Johannesburg", ISP: "Vodacom", ASN: 29975},
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0"},
}

// scenario returns 100 time-ordered logins for one user: 95 routine logins
// at 09:00, 12:00 and 15:00 (desktop, phone in the afternoon) from London,
// and the 5 hijacks. The second return value holds the hijack indices.
func scenario() ([]models.LoginEvent, map[int]bool) {
	var events []models.LoginEvent
	for day := 0; len(events) < 95; day++ {
		for _, hour := range []int{9, 12, 15} {
			if len(events) == 95 {
				break
			}
			ua := desktopUA
			if hour == 15 {
				ua = phoneUA
			}
			events = append(events, models.LoginEvent{
				Timestamp: scenarioStart.Add(time.Duration(day*24+hour) * time.Hour),
				UserID:    "alice",
				IPAddress: homePoints[day%2].IPAddress,
				UserAgent: ua,
			})
		}
	}

	hijacked := make(map[string]bool)
	for _, h := range hijacks {
		events = append(events, models.LoginEvent{
			Timestamp: scenarioStart.AddDate(0, 0, h.day).
				Add(time.Duration(h.hour)*time.Hour + time.Duration(h.minute)*time.Minute),
			UserID:    "alice",
			IPAddress: h.point.IPAddress,
			UserAgent: h.userAgent,
		})
		hijacked[h.point.IPAddress] = true
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	anomalies := make(map[int]bool)
	for i, e := range events {
		if hijacked[e.IPAddress] {
			anomalies[i] = true
		}
	}
	return events, anomalies
}

func scenarioPoints() []models.GeoPoint {
	points := append([]models.GeoPoint(nil), homePoints...)
	for _, h := range hijacks {
		points = append(points, h.point)
	}
	return points
}

// commuterPoints are bob's two offices: Paris and Berlin, 880 km apart.
var commuterPoints = []models.GeoPoint{
	{IPAddress: "198.51.100.1", Latitude: 48.8566, Longitude: 2.3522, Country: "France", CountryCode: "FR", City: "Paris", ISP: "Orange", ASN: 3215},
	{IPAddress: "198.51.100.2", Latitude: 52.5200, Longitude: 13.4050, Country: "Germany", CountryCode: "DE", City: "Berlin", ISP: "Deutsche Telekom", ASN: 3320},
}

// commuter returns n logins at 10:00 and 16:00, working from Paris on even
// days and from Berlin on odd days.
func commuter(user string, n int) []models.LoginEvent {
	events := make([]models.LoginEvent, 0, n)
	for i := 0; i < n; i++ {
		day, hour := i/2, 10+6*(i%2)
		events = append(events, models.LoginEvent{
			Timestamp: scenarioStart.Add(time.Duration(day*24+hour) * time.Hour),
			UserID:    user,
			IPAddress: commuterPoints[day%2].IPAddress,
			UserAgent: desktopUA,
		})
	}
	return events
}

// failingProvider fails every lookup of one IP with a transient error.
type failingProvider struct {
	geo.Provider
	ip string
}

func (p failingProvider) Lookup(ctx context.Context, ip string) (*models.GeoPoint, error) {
	if ip == p.ip {
		return nil, errors.New("upstream timeout")
	}
	return p.Provider.Lookup(ctx, ip)
}

// newTestEngine builds the default engine with geolocation over provider,
// driven by a fake clock. A nil provider disables geolocation.
func newTestEngine(t *testing.T, provider geo.Provider) *Engine {
	t.Helper()
	opts := DefaultOptions()
	if provider != nil {
		resolver := geo.NewResolver(provider, nil, geo.NewFakeClock(scenarioStart), geo.DefaultResolverConfig())
		opts.Analyzer = geo.NewAnalyzer(resolver, geo.DefaultAnalyzerConfig())
	}
	eng, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng
}
