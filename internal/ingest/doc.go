// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package ingest reads login events from CSV or JSON and validates them
// before they reach the scoring engine.
//
// CSV input needs a header naming at least timestamp, user_id, ip_address
// and user_agent; column order and letter case are free and unknown columns
// are ignored. JSON input is either an array of events or an object with an
// "events" array.
//
// Invalid rows do not abort a read. Each one is reported as a RowError with
// its line (CSV) or position (JSON) and left out of Result.Events. Only
// structural problems fail the whole read: an unreadable header, missing
// required columns, malformed JSON, or more events than Options.MaxEvents.
//
// Timestamps accept RFC 3339 and the common "2006-01-02 15:04:05" layouts.
// Values without a zone are taken as UTC.
package ingest
