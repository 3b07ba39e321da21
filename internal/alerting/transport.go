// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package alerting

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/loginwatch/internal/config"
	"github.com/tomtom215/loginwatch/internal/logging"
)

// Transport is an opened alert publisher plus, for the in-process
// transport, the subscriber side that LogSink drains.
type Transport struct {
	Publisher  *Publisher
	Subscriber message.Subscriber
	Kind       string
}

// Open builds the publisher described by cfg. A NATS URL selects JetStream;
// otherwise alerts travel over an in-process go channel.
func Open(cfg config.AlertingConfig, riskThreshold float64) (*Transport, error) {
	logger := newWatermillLogger()
	pubCfg := Config{Topic: cfg.Topic, RiskThreshold: riskThreshold}

	if cfg.NATSURL == "" {
		channel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, logger)
		logging.Info().Str("topic", cfg.Topic).Msg("Alerts routed to in-process channel")
		return &Transport{
			Publisher:  NewPublisher(pubCfg, channel),
			Subscriber: channel,
			Kind:       "gochannel",
		}, nil
	}

	if err := ensureStream(cfg); err != nil {
		return nil, err
	}
	pub, err := newNATSPublisher(cfg.NATSURL, logger)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("topic", cfg.Topic).
		Str("stream", cfg.Stream).
		Str("url", cfg.NATSURL).
		Msg("Alerts routed to NATS JetStream")
	return &Transport{
		Publisher: NewPublisher(pubCfg, pub),
		Kind:      "nats",
	}, nil
}

func newNATSPublisher(url string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("loginwatch-alerts"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false, // stream is created by ensureStream
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS alert publisher: %w", err)
	}
	return pub, nil
}

// ensureStream creates the alert stream when it does not exist yet.
// JetStream drops republished alerts whose ID it has seen within
// DedupWindow, so rescoring a batch does not duplicate alerts.
func ensureStream(cfg config.AlertingConfig) error {
	nc, err := natsgo.Connect(cfg.NATSURL, natsgo.Name("loginwatch-provisioner"), natsgo.Timeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("open JetStream context: %w", err)
	}

	_, err = js.StreamInfo(cfg.Stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, natsgo.ErrStreamNotFound) {
		return fmt.Errorf("look up stream %s: %w", cfg.Stream, err)
	}

	dedup := cfg.DedupWindow
	if dedup <= 0 {
		dedup = 2 * time.Minute
	}
	_, err = js.AddStream(&natsgo.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Topic, cfg.Topic + ".>"},
		Storage:    natsgo.FileStorage,
		Retention:  natsgo.LimitsPolicy,
		MaxAge:     30 * 24 * time.Hour,
		Duplicates: dedup,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}
	logging.Info().Str("stream", cfg.Stream).Str("subject", cfg.Topic).Msg("Alert stream created")
	return nil
}
