// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

// Package detection implements the detector ensemble that scores login
// feature vectors for anomalies.
//
// Detection Architecture:
//
//	[]FeatureVector -> Ensemble -> density_outlier  (isolation forest)
//	                            -> cluster_outlier  (DBSCAN noise distance)
//	                            -> statistical_rule (threshold rules)
//	                 -> map[Kind][]DetectorResult -> scoring aggregator
//
// The set of detector kinds is closed: every Detector is one of the three
// kinds above, constructed through New or the kind-specific constructors.
// Detectors are independent and stateless across calls, so the ensemble
// runs them concurrently.
//
// Every detector returns exactly one DetectorResult per input vector, in
// input order, with Score in [0,1]. When a model cannot be fitted (too few
// samples, no variance, no cluster formed) the detector returns neutral
// scores of 0 and a DegenerateInputWarning instead of failing.
//
// Determinism:
// The isolation forest draws from math/rand seeded with the configured
// seed, the DBSCAN pass visits points in input order, and no map iteration
// influences a result. Identical input and configuration always produce
// identical results.
package detection
