// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// stubService runs until its context ends, failing its first failFirst runs.
type stubService struct {
	name      string
	failFirst int32
	starts    atomic.Int32
	started   chan struct{}
}

func newStubService(name string, failFirst int32) *stubService {
	return &stubService{name: name, failFirst: failFirst, started: make(chan struct{}, 1)}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failFirst {
		return errors.New("simulated failure")
	}
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }
