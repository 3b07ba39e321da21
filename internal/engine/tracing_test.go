// Loginwatch - Login Event Anomaly Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loginwatch

package engine

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tomtom215/loginwatch/internal/geo"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRun_Spans(t *testing.T) {
	recorder := recordSpans(t)
	events, _ := scenario()

	result, err := newTestEngine(t, geo.NewStaticProvider(scenarioPoints())).Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range recorder.Ended() {
		byName[s.Name()] = s
	}
	root, ok := byName["engine.Run"]
	if !ok {
		t.Fatalf("no engine.Run span among %d spans", len(recorder.Ended()))
	}
	if v, _ := spanAttr(root, "loginwatch.run_id"); v.AsString() != result.RunID {
		t.Errorf("run_id attribute = %q, want %q", v.AsString(), result.RunID)
	}
	if v, _ := spanAttr(root, "loginwatch.events"); v.AsInt64() != int64(len(events)) {
		t.Errorf("events attribute = %d, want %d", v.AsInt64(), len(events))
	}
	for _, name := range []string{"geo.Analyze", "detection.Ensemble"} {
		child, ok := byName[name]
		if !ok {
			t.Errorf("missing %s span", name)
			continue
		}
		if child.Parent().SpanID() != root.SpanContext().SpanID() {
			t.Errorf("%s is not a child of engine.Run", name)
		}
	}
}

func TestRun_SpanRecordsCancellation(t *testing.T) {
	recorder := recordSpans(t)
	events, _ := scenario()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestEngine(t, geo.NewStaticProvider(scenarioPoints())).Run(ctx, events); err == nil {
		t.Fatal("Run on canceled context should fail")
	}
	for _, s := range recorder.Ended() {
		if s.Name() == "engine.Run" {
			if s.Status().Code != codes.Error {
				t.Errorf("engine.Run status = %v, want Error", s.Status().Code)
			}
			return
		}
	}
	t.Error("no engine.Run span recorded")
}
