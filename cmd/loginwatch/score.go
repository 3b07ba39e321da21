// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/loginwatch/internal/alerting"
	"github.com/tomtom215/loginwatch/internal/config"
	"github.com/tomtom215/loginwatch/internal/engine"
	"github.com/tomtom215/loginwatch/internal/ingest"
	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/models"
)

// errAlertsNeedNATS is returned for -alerts without a NATS URL: an
// in-process channel would drop every alert when the command exits.
var errAlertsNeedNATS = errors.New("score -alerts requires NATS_URL")

// scoreReport is the document written by the score command.
type scoreReport struct {
	*models.BatchResult
	Rejected        []ingest.RowError `json:"rejected_rows,omitempty"`
	Duplicates      int               `json:"duplicate_rows,omitempty"`
	AlertsPublished int               `json:"alerts_published,omitempty"`
	DurationMS      int64             `json:"duration_ms"`
}

// score reads one CSV or JSON file, scores it and writes the report.
func score(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("out", "", "write the report to `file` instead of stdout")
	dedupe := fs.Bool("dedupe", false, "drop exact duplicate events")
	publish := fs.Bool("alerts", false, "publish high-risk alerts to NATS")
	compact := fs.Bool("compact", false, "write single-line JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("score: %w", err)
	}
	if fs.NArg() != 1 {
		return errors.New("usage: loginwatch score [-out FILE] [-dedupe] [-alerts] [-compact] EVENTS_FILE")
	}
	if *publish && cfg.Alerting.NATSURL == "" {
		return errAlertsNeedNATS
	}

	input, err := ingest.ReadFile(fs.Arg(0), ingest.Options{Dedupe: *dedupe, MaxEvents: cfg.Server.MaxEvents})
	if err != nil {
		return err
	}

	eng, res, err := engine.FromConfig(cfg, nil)
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing geolocation cache")
		}
	}()

	start := time.Now()
	result, err := eng.Run(ctx, input.Events)
	if err != nil {
		return err
	}
	report := scoreReport{
		BatchResult: result,
		Rejected:    input.Rejected,
		Duplicates:  input.Duplicates,
		DurationMS:  time.Since(start).Milliseconds(),
	}

	if *publish {
		transport, err := alerting.Open(cfg.Alerting, cfg.Detection.RiskThreshold)
		if err != nil {
			return fmt.Errorf("open alert transport: %w", err)
		}
		report.AlertsPublished, err = transport.Publisher.Publish(ctx, result)
		if closeErr := transport.Publisher.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Error closing alert publisher")
		}
		if err != nil {
			return fmt.Errorf("publish alerts: %w", err)
		}
	}

	return writeReport(report, *out, *compact, stdout)
}

func writeReport(report scoreReport, path string, compact bool, stdout io.Writer) error {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(report)
	} else {
		data, err = json.MarshalIndent(report, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logging.Info().
		Str("path", path).
		Int("events", len(report.Assessments)).
		Int("warnings", len(report.Warnings)).
		Msg("Score report written")
	return nil
}
