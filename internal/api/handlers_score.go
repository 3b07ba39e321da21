// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/models"
)

// ScoreResponse is the data of a successful POST /api/v1/score.
type ScoreResponse struct {
	*models.BatchResult
	AlertsPublished int    `json:"alerts_published"`
	AlertError      string `json:"alert_error,omitempty"`
}

// Score scores a batch of login events.
//
// The body is a models.ScoreRequest. Validation failures return 400 with
// the failing field; an empty or oversized batch is rejected before any
// scoring work. Alert publishing failures do not fail the request: the
// scores are returned with alert_error set.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Scoring engine is not configured", ErrEngineUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body", err)
		return
	}
	var req models.ScoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", nil)
		return
	}
	if len(req.Events) > h.config.MaxEvents {
		respondErrorDetails(w, http.StatusRequestEntityTooLarge, "TOO_MANY_EVENTS",
			fmt.Sprintf("At most %d events per request", h.config.MaxEvents),
			map[string]interface{}{"max_events": h.config.MaxEvents, "events": len(req.Events)}, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	result, err := h.engine.Run(ctx, req.Events)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			respondError(w, http.StatusGatewayTimeout, "SCORING_TIMEOUT", "Scoring did not finish in time", err)
		case errors.Is(err, context.Canceled):
			respondError(w, http.StatusServiceUnavailable, "REQUEST_CANCELED", "Request was canceled", err)
		default:
			respondError(w, http.StatusInternalServerError, "SCORING_FAILED", "Failed to score events", err)
		}
		return
	}

	resp := ScoreResponse{BatchResult: result}
	if h.alerts != nil {
		n, err := h.alerts.Publish(ctx, result)
		resp.AlertsPublished = n
		if err != nil {
			resp.AlertError = err.Error()
			logging.Ctx(ctx).Error().Err(err).Str("run_id", result.RunID).Int("published", n).Msg("Alert publishing failed")
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   resp,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			RunID:       result.RunID,
		},
	})
}
