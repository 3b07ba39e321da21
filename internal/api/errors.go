// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package api

import "errors"

// Common API errors
var (
	// ErrEngineUnavailable indicates the handler was built without a scoring engine.
	ErrEngineUnavailable = errors.New("scoring engine is not configured")

	// ErrTooManyEvents indicates a request above the configured batch size.
	ErrTooManyEvents = errors.New("too many events in request")
)
