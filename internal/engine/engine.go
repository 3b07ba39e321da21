// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/loginwatch/internal/detection"
	"github.com/tomtom215/loginwatch/internal/features"
	"github.com/tomtom215/loginwatch/internal/geo"
	"github.com/tomtom215/loginwatch/internal/logging"
	"github.com/tomtom215/loginwatch/internal/metrics"
	"github.com/tomtom215/loginwatch/internal/models"
	"github.com/tomtom215/loginwatch/internal/scoring"
)

const tracerName = "github.com/tomtom215/loginwatch/internal/engine"

// runNamespace scopes run IDs derived from batch content.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/loginwatch/runs"))

// Options configures an Engine.
type Options struct {
	Features  features.Config
	Detection detection.Config
	Scoring   scoring.Config

	// RiskThreshold marks a user as high risk in the summary.
	RiskThreshold float64

	// AnomalyThreshold is the score at which an event counts as an anomaly in the summary.
	AnomalyThreshold float64

	// Analyzer resolves IPs and evaluates travel. Nil disables geolocation.
	Analyzer *geo.Analyzer
}

// DefaultOptions returns the default pipeline without geolocation.
func DefaultOptions() Options {
	return Options{
		Features:         features.DefaultConfig(),
		Detection:        detection.DefaultConfig(),
		Scoring:          scoring.DefaultConfig(),
		RiskThreshold:    0.7,
		AnomalyThreshold: 0.5,
	}
}

// Engine scores batches of login events. It is safe for concurrent use;
// each Run is independent.
type Engine struct {
	extractor  *features.Extractor
	analyzer   *geo.Analyzer
	ensemble   *detection.Ensemble
	aggregator *scoring.Aggregator

	riskThreshold    float64
	anomalyThreshold float64
}

// New creates an Engine. Malformed weights are returned as
// *scoring.InvalidWeightConfigError before any event is processed.
func New(opts Options) (*Engine, error) {
	aggregator, err := scoring.NewAggregator(opts.Scoring)
	if err != nil {
		return nil, err
	}
	ensemble, err := detection.NewEnsemble(opts.Detection)
	if err != nil {
		return nil, fmt.Errorf("build detector ensemble: %w", err)
	}
	return &Engine{
		extractor:        features.NewExtractor(opts.Features),
		analyzer:         opts.Analyzer,
		ensemble:         ensemble,
		aggregator:       aggregator,
		riskThreshold:    opts.RiskThreshold,
		anomalyThreshold: opts.AnomalyThreshold,
	}, nil
}

// GeolocationEnabled reports whether runs resolve IP addresses.
func (e *Engine) GeolocationEnabled() bool {
	return e.analyzer != nil
}

// RiskThreshold returns the score at which an assessment is high risk.
func (e *Engine) RiskThreshold() float64 {
	return e.riskThreshold
}

// Run scores events and returns one assessment per event in input order.
// It fails only when ctx is cancelled.
func (e *Engine) Run(ctx context.Context, events []models.LoginEvent) (*models.BatchResult, error) {
	start := time.Now()
	runID := RunID(events)
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.Run", trace.WithAttributes(
		attribute.String("loginwatch.run_id", runID),
		attribute.Int("loginwatch.events", len(events)),
	))
	defer span.End()

	result := &models.BatchResult{
		RunID:       runID,
		Assessments: []models.RiskAssessment{},
		Warnings:    []models.Warning{},
	}
	if len(events) == 0 {
		result.Summary = summarize(events, nil, nil, nil, e.riskThreshold, e.anomalyThreshold)
		return result, nil
	}

	var (
		vectors  []models.FeatureVector
		report   features.Report
		analysis *geo.Analysis
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectors, report = e.extractor.Extract(events)
		return nil
	})
	if e.analyzer != nil {
		g.Go(func() error {
			actx, aspan := otel.Tracer(tracerName).Start(gctx, "geo.Analyze")
			defer aspan.End()
			a, err := e.analyzer.Analyze(actx, events)
			if err != nil {
				return failSpan(aspan, err)
			}
			aspan.SetAttributes(
				attribute.Int("loginwatch.geo.distinct_ips", a.DistinctIPs),
				attribute.Int("loginwatch.geo.failures", len(a.Failures)),
			)
			analysis = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failSpan(span, fmt.Errorf("geolocation: %w", err))
	}

	var warnings []models.Warning
	if report.InsufficientHistory > 0 {
		warnings = append(warnings, models.Warning{
			Kind:       models.WarningInsufficientData,
			EventIndex: -1,
			Message: fmt.Sprintf("%d events lacked enough prior logins for an hour baseline; hour z-score set to neutral",
				report.InsufficientHistory),
		})
	}

	inputs := make([]scoring.Input, len(events))
	for i := range events {
		inputs[i] = scoring.Input{Index: i, Event: events[i], Vector: vectors[i]}
	}
	if analysis != nil {
		features.FillGeo(vectors, analysis.Locations, analysis.Arrivals)
		for i := range inputs {
			inputs[i].Vector = vectors[i]
			inputs[i].Location = analysis.Locations[i]
			inputs[i].Travel = analysis.Arrivals[i]
		}
		for _, f := range analysis.Failures {
			warnings = append(warnings, models.Warning{
				Kind:       models.WarningGeolocationFailed,
				EventIndex: f.EventIndex,
				IPAddress:  f.Failure.IPAddress,
				Message:    f.Failure.Error(),
			})
		}
	}

	dctx, dspan := otel.Tracer(tracerName).Start(ctx, "detection.Ensemble")
	ensembleResult, err := e.ensemble.Run(dctx, vectors)
	if err != nil {
		failSpan(dspan, err)
		dspan.End()
		return nil, failSpan(span, fmt.Errorf("run detectors: %w", err))
	}
	dspan.End()
	for _, w := range ensembleResult.Warnings {
		warnings = append(warnings, models.Warning{
			Kind:       models.WarningDegenerateInput,
			Detector:   string(w.Detector),
			EventIndex: -1,
			Message:    w.Error(),
		})
	}

	assessments, scoreWarnings := e.aggregator.ScoreBatch(inputs, ensembleResult.Results)
	warnings = append(warnings, scoreWarnings...)
	sortWarnings(warnings)

	result.Assessments = assessments
	if warnings != nil {
		result.Warnings = warnings
	}
	result.Summary = summarize(events, vectors, assessments, analysis, e.riskThreshold, e.anomalyThreshold)
	if analysis != nil {
		clusters, err := locationClusters(ctx, assessments)
		if err != nil {
			return nil, failSpan(span, fmt.Errorf("location clusters: %w", err))
		}
		result.Summary.LocationClusters = clusters
		result.Summary.CountryRisk = countryRisk(assessments)
	}

	span.SetAttributes(
		attribute.Int("loginwatch.anomalies", result.Summary.AnomaliesFound),
		attribute.Int("loginwatch.unscored", result.Summary.UnscoredEvents),
		attribute.Int("loginwatch.warnings", len(warnings)),
	)

	duration := time.Since(start)
	metrics.RecordBatch(len(events), duration)
	for i := range assessments {
		metrics.RecordAssessment(string(assessments[i].Criticality))
	}
	for i := range warnings {
		metrics.RecordWarning(string(warnings[i].Kind))
	}

	log.Info().
		Int("events", len(events)).
		Int("users", result.Summary.UniqueUsers).
		Int("anomalies", result.Summary.AnomaliesFound).
		Int("unscored", result.Summary.UnscoredEvents).
		Int("warnings", len(warnings)).
		Dur("duration", duration).
		Msg("Batch scored")

	if logging.IsLevelEnabled(zerolog.DebugLevel) {
		for i := range assessments {
			a := &assessments[i]
			if !a.Scored || a.RiskScore < e.riskThreshold {
				continue
			}
			log.Debug().
				Int("event_index", a.EventIndex).
				Str("user_id", a.UserID).
				Float64("risk_score", a.RiskScore).
				Str("criticality", string(a.Criticality)).
				Strs("factors", a.ContributingFactors).
				Msg("Assessment above risk threshold")
		}
	}

	return result, nil
}

// failSpan marks span as failed with err and returns err.
func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// RunID derives a stable run identifier from the batch content.
func RunID(events []models.LoginEvent) string {
	data, err := json.Marshal(events)
	if err != nil {
		return uuid.Nil.String()
	}
	return uuid.NewSHA1(runNamespace, data).String()
}

// warningRank orders warning kinds that share an event index.
var warningRank = map[models.WarningKind]int{
	models.WarningInsufficientData:  0,
	models.WarningDegenerateInput:   1,
	models.WarningGeolocationFailed: 2,
	models.WarningScoringFailed:     3,
}

func sortWarnings(warnings []models.Warning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.EventIndex != b.EventIndex {
			return a.EventIndex < b.EventIndex
		}
		if warningRank[a.Kind] != warningRank[b.Kind] {
			return warningRank[a.Kind] < warningRank[b.Kind]
		}
		return a.Detector < b.Detector
	})
}
