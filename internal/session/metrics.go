// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the chat collection and orchestrates streaming.
package session

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// instruments are the completion metrics recorded by the manager.
type instruments struct {
	fragments metric.Int64Counter
	outcomes  metric.Int64Counter
	duration  metric.Float64Histogram
}

func newInstruments(meter metric.Meter, logger *slog.Logger) instruments {
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	fragments, err := meter.Int64Counter("chat.completion.fragments",
		metric.WithDescription("Fragments applied to provisional assistant messages"))
	if err != nil {
		logger.Warn("create fragments counter", "error", err)
		fragments, _ = fallback.Int64Counter("chat.completion.fragments")
	}
	outcomes, err := meter.Int64Counter("chat.completion.outcome",
		metric.WithDescription("Completed, aborted and errored streaming sessions"))
	if err != nil {
		logger.Warn("create outcome counter", "error", err)
		outcomes, _ = fallback.Int64Counter("chat.completion.outcome")
	}
	duration, err := meter.Float64Histogram("chat.completion.duration_ms",
		metric.WithDescription("Streaming session duration"),
		metric.WithUnit("ms"))
	if err != nil {
		logger.Warn("create duration histogram", "error", err)
		duration, _ = fallback.Float64Histogram("chat.completion.duration_ms")
	}

	return instruments{fragments: fragments, outcomes: outcomes, duration: duration}
}

func (i instruments) record(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	i.outcomes.Add(ctx, 1, attrs)
	i.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}
