// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry sets up logging, tracing and metrics for mychat.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	// ServiceName identifies mychat in traces and metrics.
	ServiceName = "mychat"

	// LogFile is the application log file name under the logs directory.
	LogFile = "mychat.log"

	traceFile  = "mychat_traces.log"
	metricFile = "mychat_metrics.log"
)

// =============================================================================
// LOGGING
// =============================================================================

// ParseLevel maps debug, info, warn or error to a slog level. Unknown
// values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}

// InitLogger creates a JSON logger writing to logDir/mychat.log with
// rotation and installs it as the slog default. Nothing is written to the
// terminal. The returned closer releases the log file.
func InitLogger(logDir, level string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	file := rotatingFile(filepath.Join(logDir, LogFile))
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	logger := slog.New(handler).With("service", ServiceName)
	slog.SetDefault(logger)
	return logger, file, nil
}

// =============================================================================
// TRACING AND METRICS
// =============================================================================

// Providers holds the tracer and meter handed to the chat manager.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdown []func(context.Context) error
}

// Shutdown flushes pending spans and metrics and closes the output files.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InitTelemetry installs OpenTelemetry trace and metric providers that export
// to rotating files in logDir. Metrics are exported every interval; zero
// means every 10 seconds.
func InitTelemetry(ctx context.Context, logDir, version string, interval time.Duration) (*Providers, error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traces := rotatingFile(filepath.Join(logDir, traceFile))
	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traces),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		traces.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metrics := rotatingFile(filepath.Join(logDir, metricFile))
	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metrics),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		traces.Close()
		metrics.Close()
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Providers{
		Tracer: tp.Tracer(ServiceName),
		Meter:  mp.Meter(ServiceName),
		shutdown: []func(context.Context) error{
			tp.Shutdown,
			mp.Shutdown,
			func(context.Context) error { return traces.Close() },
			func(context.Context) error { return metrics.Close() },
		},
	}, nil
}
