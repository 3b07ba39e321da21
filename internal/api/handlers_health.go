// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/loginwatch/internal/models"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status             string  `json:"status"`
	Version            string  `json:"version"`
	EngineReady        bool    `json:"engine_ready"`
	GeolocationEnabled bool    `json:"geolocation_enabled"`
	AlertingEnabled    bool    `json:"alerting_enabled"`
	Uptime             float64 `json:"uptime_seconds"`
}

// Health reports overall service status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ready := h.engine != nil
	status := "healthy"
	if !ready {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: HealthStatus{
			Status:             status,
			Version:            h.config.Version,
			EngineReady:        ready,
			GeolocationEnabled: ready && h.engine.GeolocationEnabled(),
			AlertingEnabled:    h.alerts != nil,
			Uptime:             time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 503 until a scoring engine is attached.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Scoring engine is not configured", nil)
		return
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   map[string]interface{}{"ready": true},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
