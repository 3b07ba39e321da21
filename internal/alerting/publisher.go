// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package alerting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("alert publisher is closed")

// Config configures a Publisher.
type Config struct {
	Topic         string
	RiskThreshold float64

	// FailureThreshold is the number of consecutive publish failures that
	// opens the circuit breaker. Default: 5
	FailureThreshold uint32
	// BreakerTimeout is how long the breaker stays open. Default: 30s
	BreakerTimeout time.Duration
}

// Publisher sends alerts for high-risk assessments with circuit breaker
// protection around the underlying Watermill publisher.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	topic     string
	threshold float64

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub. The Publisher owns pub and closes it on Close.
func NewPublisher(cfg Config, pub message.Publisher) *Publisher {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	name := "alerts-" + cfg.Topic
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Publisher{
		publisher: pub,
		breaker:   breaker,
		topic:     cfg.Topic,
		threshold: cfg.RiskThreshold,
	}
}

// Topic returns the topic alerts are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Threshold returns the minimum risk score that raises an alert.
func (p *Publisher) Threshold() float64 {
	return p.threshold
}

// Publish sends one message per qualifying assessment in result and returns
// how many were published. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, result *models.BatchResult) (int, error) {
	alerts := Select(result, p.threshold)
	for i := range alerts {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := p.PublishAlert(&alerts[i]); err != nil {
			return i, err
		}
	}
	if len(alerts) > 0 {
		logging.Ctx(ctx).Info().
			Str("topic", p.topic).
			Int("alerts", len(alerts)).
			Msg("Risk alerts published")
	}
	return len(alerts), nil
}

// PublishAlert sends a single alert.
func (p *Publisher) PublishAlert(alert *Alert) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	msg := message.NewMessage(alert.AlertID, payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, alert.AlertID)
	msg.Metadata.Set("run_id", alert.RunID)
	msg.Metadata.Set("user_id", alert.UserID)
	msg.Metadata.Set("criticality", string(alert.Criticality))

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	if err != nil {
		metrics.AlertPublishErrors.Inc()
		return fmt.Errorf("publish alert %s: %w", alert.AlertID, err)
	}
	metrics.AlertsPublished.WithLabelValues(string(alert.Criticality)).Inc()
	return nil
}

// Close shuts down the underlying publisher. It is safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
