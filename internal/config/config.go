// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Detection   DetectionConfig   `koanf:"detection"`
	Features    FeaturesConfig    `koanf:"features"`
	Geolocation GeolocationConfig `koanf:"geolocation"`
	Alerting    AlertingConfig    `koanf:"alerting"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// DetectionConfig configures the detector ensemble and the risk aggregator.
type DetectionConfig struct {
	ContaminationRate float64 `koanf:"contamination_rate" validate:"gt=0,lt=0.5"`
	RiskThreshold     float64 `koanf:"risk_threshold" validate:"probability"`
	AnomalyThreshold  float64 `koanf:"anomaly_threshold" validate:"probability"` // summary counting only

	// DetectorWeights maps detector name to weight; must sum to 1.
	DetectorWeights map[string]float64 `koanf:"detector_weights"`

	// DetectorThresholds optionally overrides, per detector, the score at which
	// the detector counts as a contributing factor. Empty means "use the
	// detector's own anomalous flag".
	DetectorThresholds map[string]float64 `koanf:"detector_thresholds"`

	ImpossibleTravelBoost float64 `koanf:"impossible_travel_boost" validate:"probability"`
	ProxySuspectBoost     float64 `koanf:"proxy_suspect_boost" validate:"probability"`

	// Seed makes the isolation forest reproducible across runs.
	Seed int64 `koanf:"seed"`

	IsolationForest IsolationForestConfig `koanf:"isolation_forest"`
	DBSCAN          DBSCANConfig          `koanf:"dbscan"`
	Statistical     StatisticalConfig     `koanf:"statistical"`
}

// IsolationForestConfig tunes the density-outlier detector.
type IsolationForestConfig struct {
	Trees      int `koanf:"trees" validate:"min=1,max=1000"`
	SampleSize int `koanf:"sample_size" validate:"min=2"`
	MinSamples int `koanf:"min_samples" validate:"min=2"`
}

// DBSCANConfig tunes the cluster-outlier detector.
type DBSCANConfig struct {
	Eps           float64 `koanf:"eps" validate:"gt=0"`
	MinSamples    int     `koanf:"min_samples" validate:"min=1"`
	BaselineScore float64 `koanf:"baseline_score" validate:"probability"`
}

// StatisticalConfig tunes the statistical-rule detector.
type StatisticalConfig struct {
	HourStdDevs    float64 `koanf:"hour_stddevs" validate:"gt=0"`
	MaxDistinctIPs int     `koanf:"max_distinct_ips" validate:"min=1"`
	Threshold      float64 `koanf:"threshold" validate:"probability"`
	OffHoursStart  int     `koanf:"off_hours_start" validate:"min=0,max=23"`
	OffHoursEnd    int     `koanf:"off_hours_end" validate:"min=0,max=23"`
}

// FeaturesConfig configures the feature extractor.
type FeaturesConfig struct {
	MinHistory int           `koanf:"min_history" validate:"min=1"`
	IPWindow   time.Duration `koanf:"ip_window" validate:"gt=0"`
}

// GeolocationConfig configures IP resolution and travel analysis.
type GeolocationConfig struct {
	Enabled                  bool          `koanf:"enabled"`
	Provider                 string        `koanf:"provider" validate:"oneof=ip-api static"`
	BaseURL                  string        `koanf:"base_url" validate:"omitempty,url"`
	StaticTablePath          string        `koanf:"static_table_path"`
	ImpossibleTravelSpeedKmH float64       `koanf:"impossible_travel_speed_kmh" validate:"gt=0"`
	MinElapsedHours          float64       `koanf:"min_elapsed_hours" validate:"gt=0"`
	RequestsPerHour          int           `koanf:"requests_per_hour" validate:"min=1"`
	Burst                    int           `koanf:"burst" validate:"min=1"`
	Workers                  int           `koanf:"workers" validate:"min=1,max=64"`
	MaxRetries               int           `koanf:"max_retries" validate:"min=0,max=10"`
	InitialBackoff           time.Duration `koanf:"initial_backoff" validate:"gt=0"`
	Timeout                  time.Duration `koanf:"timeout" validate:"gt=0"`
	CachePath                string        `koanf:"cache_path"`
	CacheTTL                 time.Duration `koanf:"cache_ttl"`
	RedisURL                 string        `koanf:"redis_url"`
	WatchStaticTable         bool          `koanf:"watch_static_table"`
	HostingASNs              []int         `koanf:"hosting_asns"`
	HostingCIDRs             []string      `koanf:"hosting_cidrs" validate:"dive,cidr"`
}

// AlertingConfig configures the alert publisher.
type AlertingConfig struct {
	Enabled bool   `koanf:"enabled"`
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic" validate:"required"`
	// Stream is the JetStream stream holding Topic. Stream names may not
	// contain dots or wildcards.
	Stream string `koanf:"stream" validate:"required,excludesall=.*>"`
	// DedupWindow is how long JetStream remembers alert IDs.
	DedupWindow time.Duration `koanf:"dedup_window" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxEvents         int           `koanf:"max_events" validate:"min=1"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
