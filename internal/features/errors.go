// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package features

import "fmt"

// InsufficientDataError reports that a user has too little history for a
// baseline-dependent feature. The extractor recovers from it locally.
type InsufficientDataError struct {
	UserID string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient history for user %s: have %d logins, need %d", e.UserID, e.Have, e.Need)
}
