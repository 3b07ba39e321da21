// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package alerting

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/loginwatch/internal/logging"
)

// LogSink drains alerts from a subscriber and writes each one to the log.
// It implements suture.Service.
type LogSink struct {
	subscriber message.Subscriber
	topic      string
	handled    func(Alert)
}

// NewLogSink returns a sink reading topic from subscriber. handled, when
// non-nil, is called after each alert is logged.
func NewLogSink(subscriber message.Subscriber, topic string, handled func(Alert)) *LogSink {
	return &LogSink{subscriber: subscriber, topic: topic, handled: handled}
}

// Serve subscribes and logs alerts until ctx is canceled.
func (s *LogSink) Serve(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			var alert Alert
			if err := json.Unmarshal(msg.Payload, &alert); err != nil {
				logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed alert")
				msg.Ack()
				continue
			}
			logging.Warn().
				Str("alert_id", alert.AlertID).
				Str("run_id", alert.RunID).
				Str("user_id", alert.UserID).
				Str("ip_address", alert.IPAddress).
				Float64("risk_score", alert.RiskScore).
				Str("criticality", string(alert.Criticality)).
				Strs("factors", alert.ContributingFactors).
				Msg("High-risk login")
			msg.Ack()
			if s.handled != nil {
				s.handled(alert)
			}
		}
	}
}

func (s *LogSink) String() string {
	return "alert-log-sink"
}
