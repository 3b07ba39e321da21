// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/loginwatch/config.yaml",
	"/etc/loginwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every default applied.
func defaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			ContaminationRate: 0.1,
			RiskThreshold:     0.7,
			AnomalyThreshold:  0.5,
			DetectorWeights: map[string]float64{
				"density_outlier":  0.4,
				"cluster_outlier":  0.3,
				"statistical_rule": 0.3,
			},
			DetectorThresholds:    map[string]float64{},
			ImpossibleTravelBoost: 0.2,
			ProxySuspectBoost:     0.1,
			Seed:                  42,
			IsolationForest: IsolationForestConfig{
				Trees:      100,
				SampleSize: 256,
				MinSamples: 10,
			},
			DBSCAN: DBSCANConfig{
				Eps:           0.5,
				MinSamples:    5,
				BaselineScore: 0,
			},
			Statistical: StatisticalConfig{
				HourStdDevs:    2.5,
				MaxDistinctIPs: 3,
				Threshold:      0.4,
				OffHoursStart:  22,
				OffHoursEnd:    6,
			},
		},
		Features: FeaturesConfig{
			MinHistory: 5,
			IPWindow:   24 * time.Hour,
		},
		Geolocation: GeolocationConfig{
			Enabled:                  true,
			Provider:                 "ip-api",
			BaseURL:                  "http://ip-api.com/json",
			ImpossibleTravelSpeedKmH: 1000,
			MinElapsedHours:          0.001,
			RequestsPerHour:          1000,
			Burst:                    10,
			Workers:                  4,
			MaxRetries:               3,
			InitialBackoff:           500 * time.Millisecond,
			Timeout:                  5 * time.Second,
			CachePath:                "",
			CacheTTL:                 7 * 24 * time.Hour,
		},
		Alerting: AlertingConfig{
			Enabled:     false,
			NATSURL:     "",
			Topic:       "loginwatch.alerts",
			Stream:      "LOGINWATCH_ALERTS",
			DedupWindow: 24 * time.Hour,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8470,
			Timeout:           60 * time.Second,
			MaxEvents:         50000,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Defaults returns the built-in configuration without reading any source.
func Defaults() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMapFields(k); err != nil {
		return nil, fmt.Errorf("failed to process map fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"geolocation.hosting_asns",
	"geolocation.hosting_cidrs",
	"server.cors_origins",
}

// processSliceFields converts comma-separated env values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := splitList(strVal)
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// mapConfigPaths are parsed from "name=value,name=value" strings when set via env.
var mapConfigPaths = []string{
	"detection.detector_weights",
	"detection.detector_thresholds",
}

// processMapFields converts "name=value" lists to float maps.
// An env value replaces the whole map rather than merging into the defaults.
func processMapFields(k *koanf.Koanf) error {
	for _, path := range mapConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parsed, err := parseFloatMap(strVal)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		k.Delete(path)
		if len(parsed) == 0 {
			continue
		}
		for name, v := range parsed {
			if err := k.Set(path+"."+name, v); err != nil {
				return fmt.Errorf("failed to set %s.%s: %w", path, name, err)
			}
		}
	}
	return nil
}

func parseFloatMap(s string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, pair := range splitList(s) {
		name, raw, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("entry %q is not name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", pair, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	// Detection
	"contamination_rate":      "detection.contamination_rate",
	"risk_threshold":          "detection.risk_threshold",
	"anomaly_threshold":       "detection.anomaly_threshold",
	"detector_weights":        "detection.detector_weights",
	"detector_thresholds":     "detection.detector_thresholds",
	"impossible_travel_boost": "detection.impossible_travel_boost",
	"proxy_suspect_boost":     "detection.proxy_suspect_boost",
	"detection_seed":          "detection.seed",
	"iforest_trees":           "detection.isolation_forest.trees",
	"iforest_sample_size":     "detection.isolation_forest.sample_size",
	"dbscan_eps":              "detection.dbscan.eps",
	"dbscan_min_samples":      "detection.dbscan.min_samples",
	"stat_hour_stddevs":       "detection.statistical.hour_stddevs",
	"stat_max_distinct_ips":   "detection.statistical.max_distinct_ips",
	"stat_threshold":          "detection.statistical.threshold",

	// Features
	"feature_min_history": "features.min_history",
	"feature_ip_window":   "features.ip_window",

	// Geolocation
	"geolocation_enabled":         "geolocation.enabled",
	"geolocation_provider":        "geolocation.provider",
	"geolocation_base_url":        "geolocation.base_url",
	"geolocation_static_table":    "geolocation.static_table_path",
	"geolocation_watch_table":     "geolocation.watch_static_table",
	"impossible_travel_speed_kmh": "geolocation.impossible_travel_speed_kmh",
	"geo_requests_per_hour":       "geolocation.requests_per_hour",
	"geo_burst":                   "geolocation.burst",
	"geo_workers":                 "geolocation.workers",
	"geo_max_retries":             "geolocation.max_retries",
	"geo_initial_backoff":         "geolocation.initial_backoff",
	"geo_timeout":                 "geolocation.timeout",
	"geo_cache_path":              "geolocation.cache_path",
	"geo_cache_ttl":               "geolocation.cache_ttl",
	"geo_redis_url":               "geolocation.redis_url",
	"geo_hosting_asns":            "geolocation.hosting_asns",
	"geo_hosting_cidrs":           "geolocation.hosting_cidrs",

	// Alerting
	"alerting_enabled": "alerting.enabled",
	"nats_url":         "alerting.nats_url",
	"alert_topic":      "alerting.topic",
	"alert_stream":     "alerting.stream",
	"alert_dedup":      "alerting.dedup_window",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"http_max_events":     "server.max_events",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
//
// Examples:
//   - GEO_REQUESTS_PER_HOUR -> geolocation.requests_per_hour
//   - CONTAMINATION_RATE -> detection.contamination_rate
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
