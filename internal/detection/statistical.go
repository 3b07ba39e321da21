// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package detection

import (
	"context"
	"math"

	"github.com/tomtom215/loginwatch/internal/models"
)

// Statistical rule names, in evaluation order.
const (
	RuleUnusualHour      = "unusual_hour"
	RuleIPBurst          = "ip_burst"
	RuleImpossibleTravel = "impossible_travel"
	RuleNovelDevice      = "novel_device"
	RuleOffHours         = "off_hours"
)

// Rules lists every statistical rule in evaluation order.
var Rules = []string{RuleUnusualHour, RuleIPBurst, RuleImpossibleTravel, RuleNovelDevice, RuleOffHours}

// StatisticalConfig configures the statistical-rule detector.
type StatisticalConfig struct {
	// HourStdDevs is the |z-score| of the login hour beyond which unusual_hour fires.
	HourStdDevs float64

	// MaxDistinctIPs is the distinct-IP count in the window above which ip_burst fires.
	MaxDistinctIPs int

	// Threshold is the fraction of triggered rules at which an event is anomalous.
	Threshold float64

	// OffHoursStart and OffHoursEnd bound the off-hours window in UTC hours.
	// The window wraps midnight when start > end.
	OffHoursStart int
	OffHoursEnd   int
}

// DefaultStatisticalConfig returns the defaults.
func DefaultStatisticalConfig() StatisticalConfig {
	return StatisticalConfig{
		HourStdDevs:    2.5,
		MaxDistinctIPs: 3,
		Threshold:      0.4,
		OffHoursStart:  22,
		OffHoursEnd:    6,
	}
}

// StatisticalRuleDetector scores events by the fraction of rules they trigger.
type StatisticalRuleDetector struct {
	config StatisticalConfig
}

// NewStatisticalRuleDetector creates the statistical-rule detector.
func NewStatisticalRuleDetector(cfg StatisticalConfig) *StatisticalRuleDetector {
	defaults := DefaultStatisticalConfig()
	if cfg.HourStdDevs <= 0 {
		cfg.HourStdDevs = defaults.HourStdDevs
	}
	if cfg.MaxDistinctIPs <= 0 {
		cfg.MaxDistinctIPs = defaults.MaxDistinctIPs
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = defaults.Threshold
	}
	if cfg.OffHoursStart == cfg.OffHoursEnd {
		cfg.OffHoursStart, cfg.OffHoursEnd = defaults.OffHoursStart, defaults.OffHoursEnd
	}
	return &StatisticalRuleDetector{config: cfg}
}

// Kind implements Detector.
func (d *StatisticalRuleDetector) Kind() Kind { return KindStatisticalRule }

func (d *StatisticalRuleDetector) sealed() {}

// Detect implements Detector. Rules are evaluated per event, so the
// detector never degenerates on small batches.
func (d *StatisticalRuleDetector) Detect(ctx context.Context, vectors []models.FeatureVector) (Output, error) {
	results := make([]models.DetectorResult, len(vectors))
	for i := range vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return Output{}, err
			}
		}
		triggered := d.Evaluate(&vectors[i])
		score := float64(len(triggered)) / float64(len(Rules))
		results[i] = models.DetectorResult{
			Detector:    string(KindStatisticalRule),
			Score:       score,
			IsAnomalous: score >= d.config.Threshold,
			Rules:       triggered,
		}
	}
	return Output{Results: results}, nil
}

// Evaluate returns the names of the rules the vector triggers, in Rules order.
func (d *StatisticalRuleDetector) Evaluate(v *models.FeatureVector) []string {
	var triggered []string
	if v.Established && math.Abs(v.HourZScore) > d.config.HourStdDevs {
		triggered = append(triggered, RuleUnusualHour)
	}
	if v.DistinctIPsWindow > d.config.MaxDistinctIPs {
		triggered = append(triggered, RuleIPBurst)
	}
	if v.ImpossibleTravel {
		triggered = append(triggered, RuleImpossibleTravel)
	}
	if v.Established && v.IPNovel && v.UANovel {
		triggered = append(triggered, RuleNovelDevice)
	}
	if d.offHours(v.Hour) {
		triggered = append(triggered, RuleOffHours)
	}
	return triggered
}

func (d *StatisticalRuleDetector) offHours(hour float64) bool {
	start, end := float64(d.config.OffHoursStart), float64(d.config.OffHoursEnd)
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}
