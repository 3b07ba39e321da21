// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package scoring combines detector results and geolocation signals into a
// single risk score per login event and maps it to a criticality band.
//
// The risk score is the weighted sum of the detector scores plus additive
// boosts for impossible travel and proxy suspicion, clamped to [0,1]:
//
//	risk = clamp(Σ w_k·score_k + travel_boost + proxy_boost, 0, 1)
//
// Bands use inclusive lower edges:
//
//	Low      [0.0, 0.4)
//	Medium   [0.4, 0.6)
//	High     [0.6, 0.8)
//	Critical [0.8, 1.0]
//
// Weights are validated once at construction. A failure while scoring one
// event never aborts the batch: the event becomes the unscored sentinel and
// a scoring_failure warning is recorded.
package scoring
