// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is returned for strings that are not IP addresses.
	ErrInvalidAddress = errors.New("invalid IP address")

	// ErrPrivateAddress is returned for addresses that cannot be geolocated.
	ErrPrivateAddress = errors.New("private or local IP address")

	// ErrNoResult is returned when a provider answers but has no location.
	ErrNoResult = errors.New("no geolocation result")
)

// LookupFailure records an IP that could not be resolved. Events using the
// IP keep an unknown location.
type LookupFailure struct {
	IPAddress string
	Attempts  int
	Err       error
}

func (e *LookupFailure) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("geolocation lookup for %s failed after %d attempts: %v", e.IPAddress, e.Attempts, e.Err)
	}
	return fmt.Sprintf("geolocation lookup for %s failed: %v", e.IPAddress, e.Err)
}

func (e *LookupFailure) Unwrap() error {
	return e.Err
}

// isPermanent reports whether retrying the lookup cannot help.
func isPermanent(err error) bool {
	return errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrPrivateAddress) ||
		errors.Is(err, ErrNoResult)
}
