// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package models

import (
	"time"
)

// DetectorResult is one detector's verdict for one event.
type DetectorResult struct {
	Detector    string   `json:"detector"`
	Score       float64  `json:"score"`
	IsAnomalous bool     `json:"is_anomalous"`
	Rules       []string `json:"rules,omitempty"`
}

// Criticality is the discrete band a risk score falls into.
type Criticality string

const (
	CriticalityLow      Criticality = "Low"
	CriticalityMedium   Criticality = "Medium"
	CriticalityHigh     Criticality = "High"
	CriticalityCritical Criticality = "Critical"

	// CriticalityUnscored marks an event whose scoring failed.
	CriticalityUnscored Criticality = "Unscored"
)

// Contributing factor names recorded on a RiskAssessment.
const (
	FactorDensityOutlier   = "density_outlier"
	FactorClusterOutlier   = "cluster_outlier"
	FactorStatisticalRule  = "statistical_rule"
	FactorImpossibleTravel = "impossible_travel"
	FactorProxySuspect     = "proxy_suspect"
)

// RiskAssessment is the final per-event output.
//
// When Scored is false the event is the unscored sentinel: RiskScore is 0,
// Criticality is CriticalityUnscored and Error carries the reason.
type RiskAssessment struct {
	EventIndex          int              `json:"event_index"`
	UserID              string           `json:"user_id"`
	Timestamp           time.Time        `json:"timestamp"`
	IPAddress           string           `json:"ip_address"`
	RiskScore           float64          `json:"risk_score"`
	Criticality         Criticality      `json:"criticality"`
	ContributingFactors []string         `json:"contributing_factors"`
	DetectorResults     []DetectorResult `json:"detector_results,omitempty"`
	Location            *GeoPoint        `json:"location,omitempty"`
	Travel              *TravelSignal    `json:"travel,omitempty"`
	Scored              bool             `json:"scored"`
	Error               string           `json:"error,omitempty"`
}

// HasFactor reports whether name is among the contributing factors.
func (r *RiskAssessment) HasFactor(name string) bool {
	for _, f := range r.ContributingFactors {
		if f == name {
			return true
		}
	}
	return false
}

// WarningKind classifies a non-fatal issue raised during a batch.
type WarningKind string

const (
	WarningInsufficientData  WarningKind = "insufficient_data"
	WarningDegenerateInput   WarningKind = "degenerate_input"
	WarningGeolocationFailed WarningKind = "geolocation_lookup_failure"
	WarningScoringFailed     WarningKind = "scoring_failure"
)

// Warning is a non-fatal issue surfaced to the operator next to the results.
// EventIndex is -1 when the warning applies to the whole batch.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	Detector   string      `json:"detector,omitempty"`
	EventIndex int         `json:"event_index"`
	IPAddress  string      `json:"ip_address,omitempty"`
	Message    string      `json:"message"`
}

// BatchSummary aggregates a batch for dashboards.
type BatchSummary struct {
	TotalEvents      int                 `json:"total_events"`
	UniqueUsers      int                 `json:"unique_users"`
	UniqueIPs        int                 `json:"unique_ips"`
	ScoredEvents     int                 `json:"scored_events"`
	UnscoredEvents   int                 `json:"unscored_events"`
	AnomaliesFound   int                 `json:"anomalies_detected"`
	AverageRiskScore float64             `json:"avg_risk_score"`
	HighRiskUsers    []string            `json:"high_risk_users"`
	ByCriticality    map[Criticality]int `json:"by_criticality"`
	ImpossibleTravel int                 `json:"impossible_travel_events"`
	ProxySuspects    int                 `json:"proxy_suspect_events"`
	Users            []UserProfile       `json:"users,omitempty"`
	Geography        []UserGeography     `json:"geography,omitempty"`
	LocationClusters []LocationCluster   `json:"location_clusters,omitempty"`
	CountryRisk      []CountryRisk       `json:"country_risk,omitempty"`
}

// UserProfile holds per-user login statistics over a batch.
type UserProfile struct {
	UserID             string    `json:"user_id"`
	LoginCount         int       `json:"login_count"`
	UniqueIPs          int       `json:"unique_ips"`
	UniqueBrowsers     int       `json:"unique_browsers"`
	UniqueOS           int       `json:"unique_os"`
	HourMean           float64   `json:"hour_mean"`
	HourStdDev         float64   `json:"hour_std"`
	WeekendRatio       float64   `json:"weekend_ratio"`
	BusinessHoursRatio float64   `json:"business_hours_ratio"`
	LoginsPerDay       float64   `json:"logins_per_day"`
	FirstSeen          time.Time `json:"first_seen"`
	LastSeen           time.Time `json:"last_seen"`
}

// UserGeography summarizes where a user logged in from.
type UserGeography struct {
	UserID               string   `json:"user_id"`
	Countries            []string `json:"countries"`
	Cities               []string `json:"cities"`
	ResolvedEvents       int      `json:"resolved_events"`
	UnknownEvents        int      `json:"unknown_events"`
	MaxDistanceKm        float64  `json:"max_distance_km"`
	MaxSpeedKmH          float64  `json:"max_speed_kmh"`
	ImpossibleTravelHops int      `json:"impossible_travel_hops"`
	ProxySuspectEvents   int      `json:"proxy_suspect_events"`
}

// LocationCluster is a group of resolved login locations within about
// 50 km of each other. Center is the mean over the member logins.
type LocationCluster struct {
	ClusterID    int      `json:"cluster_id"`
	CenterLat    float64  `json:"center_lat"`
	CenterLon    float64  `json:"center_lon"`
	LoginCount   int      `json:"login_count"`
	UniqueUsers  int      `json:"unique_users"`
	Countries    []string `json:"countries"`
	Cities       []string `json:"cities"`
	AvgRiskScore float64  `json:"avg_risk_score"`
}

// CountryRisk is the mean risk of the scored logins resolved to one country.
type CountryRisk struct {
	Country  string  `json:"country"`
	Logins   int     `json:"logins"`
	MeanRisk float64 `json:"mean_risk"`
}

// BatchResult is everything one engine run produces.
type BatchResult struct {
	RunID       string           `json:"run_id"`
	Assessments []RiskAssessment `json:"assessments"`
	Warnings    []Warning        `json:"warnings"`
	Summary     BatchSummary     `json:"summary"`
}
