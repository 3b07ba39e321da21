// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

/*
Package services adapts server components to suture.Service.

Return values decide what the supervisor does next:

	nil         -> service finished, not restarted
	error       -> service crashed, restarted with backoff
	ctx.Err()   -> shutdown requested

Every wrapper implements fmt.Stringer so supervisor events name the service.
*/
package services
