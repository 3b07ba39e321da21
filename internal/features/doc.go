// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package features derives per-event feature vectors from raw login events.
//
// Events are grouped by user and walked in timestamp order (ties keep input
// order); vectors are returned in input order. Features:
//
//   - hour of day, circularly encoded as sin/cos
//   - hours since the user's previous login (the first login falls back to
//     the user's median interval within the batch)
//   - IP and user-agent novelty against the user's earlier logins
//   - distinct IPs within a rolling window ending at the login
//   - hour z-score against the user's earlier login hours
//   - browser, OS and device family parsed from the user agent
//
// The geolocation fields stay empty until FillGeo copies the analyzer
// output into them.
package features
