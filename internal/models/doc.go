// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package models defines the data structures shared by the Loginwatch scoring pipeline.

Key Components:

  - LoginEvent: immutable input record (timestamp, user, IP, user agent)
  - GeoPoint: resolved location of an IP address
  - FeatureVector: per-event numeric attributes consumed by the detectors
  - TravelSignal: feasibility of travel between two logins of one user
  - DetectorResult: one detector's normalized verdict for one event
  - RiskAssessment: final per-event output of the scoring aggregator
  - Warning: non-fatal issue accumulated alongside a batch
  - BatchResult: assessments, warnings and summary for one run

Ownership:

Models are plain values. Each stage of the pipeline produces its own slice
and later stages only read what earlier stages produced. FeatureVector is
the exception: the geolocation slot is filled once, by the engine, after the
geolocation analyzer has run and before any detector reads the vector.

API Responses:

APIResponse wraps every HTTP payload with a status, data and metadata block.
*/
package models
