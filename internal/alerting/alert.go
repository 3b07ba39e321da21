// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package alerting publishes high-risk assessments to a message topic.
//
// An assessment becomes an Alert when it was scored and its risk score is
// at or above the configured risk threshold. Alerts go out through a
// Watermill publisher: NATS JetStream when a NATS URL is configured,
// otherwise an in-process go channel drained by LogSink.
//
// Alert IDs are derived from the batch run ID and the event index, so
// rescoring the same batch produces the same IDs and JetStream's
// Nats-Msg-Id deduplication drops the repeats.
package alerting

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/loginwatch/internal/models"
)

var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/loginwatch/alerts"))

// Alert is the message body published for one high-risk login.
type Alert struct {
	AlertID             string               `json:"alert_id"`
	RunID               string               `json:"run_id"`
	EventIndex          int                  `json:"event_index"`
	UserID              string               `json:"user_id"`
	IPAddress           string               `json:"ip_address"`
	Timestamp           time.Time            `json:"timestamp"`
	RiskScore           float64              `json:"risk_score"`
	Criticality         models.Criticality   `json:"criticality"`
	ContributingFactors []string             `json:"contributing_factors"`
	Location            *models.GeoPoint     `json:"location,omitempty"`
	Travel              *models.TravelSignal `json:"travel,omitempty"`
}

// AlertID returns the deterministic ID of the alert for eventIndex in run.
func AlertID(runID string, eventIndex int) string {
	return uuid.NewSHA1(alertNamespace, []byte(runID+"/"+strconv.Itoa(eventIndex))).String()
}

// Select returns an Alert for every scored assessment in result whose risk
// score is at least threshold, in event order.
func Select(result *models.BatchResult, threshold float64) []Alert {
	if result == nil {
		return nil
	}
	var alerts []Alert
	for i := range result.Assessments {
		a := &result.Assessments[i]
		if !a.Scored || a.RiskScore < threshold {
			continue
		}
		alerts = append(alerts, Alert{
			AlertID:             AlertID(result.RunID, a.EventIndex),
			RunID:               result.RunID,
			EventIndex:          a.EventIndex,
			UserID:              a.UserID,
			IPAddress:           a.IPAddress,
			Timestamp:           a.Timestamp,
			RiskScore:           a.RiskScore,
			Criticality:         a.Criticality,
			ContributingFactors: a.ContributingFactors,
			Location:            a.Location,
			Travel:              a.Travel,
		})
	}
	return alerts
}
