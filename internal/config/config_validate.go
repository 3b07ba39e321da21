// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package config

import (
	"fmt"

	"github.com/tomtom215/loginwatch/internal/scoring"
	"github.com/tomtom215/loginwatch/internal/validation"
)

// Validate checks ranges and cross-field rules.
// Malformed detector weights are reported as *scoring.InvalidWeightConfigError.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateDetection(); err != nil {
		return err
	}

	if err := c.validateGeolocation(); err != nil {
		return err
	}

	return c.validateAlerting()
}

func (c *Config) validateDetection() error {
	if _, err := scoring.NewWeights(c.Detection.DetectorWeights); err != nil {
		return err
	}
	if _, err := scoring.NewThresholds(c.Detection.DetectorThresholds); err != nil {
		return err
	}
	if c.Detection.Statistical.OffHoursStart == c.Detection.Statistical.OffHoursEnd {
		return fmt.Errorf("detection.statistical: off_hours_start and off_hours_end must differ")
	}
	return nil
}

func (c *Config) validateGeolocation() error {
	if !c.Geolocation.Enabled {
		return nil
	}
	switch c.Geolocation.Provider {
	case "ip-api":
		if c.Geolocation.BaseURL == "" {
			return fmt.Errorf("GEOLOCATION_BASE_URL is required for the ip-api provider")
		}
	case "static":
		if c.Geolocation.StaticTablePath == "" {
			return fmt.Errorf("GEOLOCATION_STATIC_TABLE is required for the static provider")
		}
	}
	if c.Geolocation.Burst > c.Geolocation.RequestsPerHour {
		return fmt.Errorf("GEO_BURST (%d) cannot exceed GEO_REQUESTS_PER_HOUR (%d)",
			c.Geolocation.Burst, c.Geolocation.RequestsPerHour)
	}
	if c.Geolocation.CachePath != "" && c.Geolocation.RedisURL != "" {
		return fmt.Errorf("GEO_CACHE_PATH and GEO_REDIS_URL are mutually exclusive")
	}
	if (c.Geolocation.CachePath != "" || c.Geolocation.RedisURL != "") && c.Geolocation.CacheTTL <= 0 {
		return fmt.Errorf("GEO_CACHE_TTL must be positive when a geolocation cache is configured")
	}
	return nil
}

func (c *Config) validateAlerting() error {
	if c.Alerting.Enabled && c.Alerting.Topic == "" {
		return fmt.Errorf("ALERT_TOPIC is required when alerting is enabled")
	}
	return nil
}
