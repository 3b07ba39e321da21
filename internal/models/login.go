// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package models

import (
	"math"
	"time"
)

// LoginEvent is a single authentication event supplied by ingestion.
// Events are never mutated once created.
type LoginEvent struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
	UserID    string    `json:"user_id" validate:"required,max=256"`
	IPAddress string    `json:"ip_address" validate:"required,ip"`
	UserAgent string    `json:"user_agent" validate:"max=2048"`
}

// GeoPoint is the resolved location of an IP address.
//
// A zero GeoPoint (0,0) is treated as unknown; see IsUnknownLocation.
type GeoPoint struct {
	IPAddress      string  `json:"ip_address"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Country        string  `json:"country,omitempty"`
	CountryCode    string  `json:"country_code,omitempty"`
	City           string  `json:"city,omitempty"`
	ISP            string  `json:"isp,omitempty"`
	ASN            int     `json:"asn,omitempty"`
	IsProxySuspect bool    `json:"is_proxy_suspect"`
	Source         string  `json:"source,omitempty"`
}

// coordinateEpsilon is the tolerance used when checking for the 0,0 placeholder.
// 1e-7 degrees is roughly 1cm at the equator.
const coordinateEpsilon = 1e-7

// IsUnknownLocation reports whether the coordinates are the 0,0 placeholder.
func IsUnknownLocation(lat, lon float64) bool {
	return math.Abs(lat) < coordinateEpsilon && math.Abs(lon) < coordinateEpsilon
}

// Known reports whether the point carries usable coordinates.
func (g *GeoPoint) Known() bool {
	return g != nil && !IsUnknownLocation(g.Latitude, g.Longitude)
}

// TravelSignal describes the move between two logins of the same user.
// FromIndex and ToIndex are positions in the input batch; the event at
// FromIndex is always earlier than the event at ToIndex.
type TravelSignal struct {
	UserID             string  `json:"user_id"`
	FromIndex          int     `json:"from_index"`
	ToIndex            int     `json:"to_index"`
	DistanceKm         float64 `json:"distance_km"`
	ElapsedHours       float64 `json:"elapsed_hours"`
	ImpliedSpeedKmH    float64 `json:"implied_speed_kmh"`
	IsImpossibleTravel bool    `json:"is_impossible_travel"`
}

// FeatureVector holds the derived attributes of one LoginEvent.
//
// Established is true once the user has enough prior logins for
// history-based features; HourZScore is 0 until then.
//
// The geo fields (GeoKnown through ProxySuspect) are a slot filled after
// geolocation resolution. Until then they hold zero values, which the
// detectors treat as "no geo signal".
type FeatureVector struct {
	EventIndex int    `json:"event_index"`
	UserID     string `json:"user_id"`

	Hour    float64 `json:"hour"`
	HourSin float64 `json:"hour_sin"`
	HourCos float64 `json:"hour_cos"`
	Weekend bool    `json:"weekend"`

	IntervalHours float64 `json:"interval_hours"`
	HasInterval   bool    `json:"has_interval"`

	IPNovel           bool    `json:"ip_novel"`
	UANovel           bool    `json:"ua_novel"`
	DistinctIPsWindow int     `json:"distinct_ips_window"`
	HistoryCount      int     `json:"history_count"`
	Established       bool    `json:"established"`
	HourZScore        float64 `json:"hour_zscore"`

	Browser string `json:"browser"`
	OS      string `json:"os"`
	Device  string `json:"device"`

	GeoKnown         bool    `json:"geo_known"`
	DistanceKm       float64 `json:"distance_km"`
	SpeedKmH         float64 `json:"speed_kmh"`
	ImpossibleTravel bool    `json:"impossible_travel"`
	ProxySuspect     bool    `json:"proxy_suspect"`
}

// FeatureNames lists the columns returned by Values, in order.
var FeatureNames = []string{
	"hour_sin",
	"hour_cos",
	"log_interval_hours",
	"ip_novel",
	"ua_novel",
	"distinct_ips_window",
}

// Values returns the numeric row consumed by the model-based detectors.
// The interval is log1p-compressed. Novelty only counts once the user is
// Established; before that every IP and user agent is new.
//
// The geo slot is not a column. The models are fitted across the whole batch,
// and a failed lookup for one user must not move any other user's scores;
// geo reaches the risk score through the impossible_travel rule and the
// aggregator boosts.
func (f *FeatureVector) Values() []float64 {
	return []float64{
		f.HourSin,
		f.HourCos,
		math.Log1p(f.IntervalHours),
		boolToFloat(f.IPNovel && f.Established),
		boolToFloat(f.UANovel && f.Established),
		float64(f.DistinctIPsWindow),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
