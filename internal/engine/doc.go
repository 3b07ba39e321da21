// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package engine runs one batch of login events through the scoring pipeline.

# Pipeline

	events ─┬─ features.Extractor ──────┐
	        └─ geo.Analyzer (optional) ─┴─ FillGeo ─ detection.Ensemble ─ scoring.Aggregator

Feature extraction and geolocation run concurrently; the detectors see the
vectors only after the geo slot is filled. Every stage is deterministic, so
the same events and configuration always produce the same BatchResult,
including its RunID, which is derived from the event content.

# Failure Policy

Only cancellation and invalid configuration fail a run. Everything else is
recovered and reported in BatchResult.Warnings:

  - insufficient_data: users without enough history got a neutral hour z-score
  - degenerate_input: a detector fell back to neutral scores
  - geolocation_lookup_failure: an event's IP could not be resolved
  - scoring_failure: an event was returned as the unscored sentinel

Warnings are sorted by event index (batch-level warnings first), then kind.
*/
package engine
