// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry sets up logging, tracing and metrics for mychat.
//
// Logs are JSON lines written through a rotating file. Traces and metrics use
// the OpenTelemetry SDK with stdout exporters pointed at rotating files in
// the same directory, so nothing is printed over the terminal UI.
//
// # Key Types
//
//   - Providers: Tracer and Meter for the chat manager, plus Shutdown
//
// # Usage
//
//	logger, closer, err := telemetry.InitLogger(logDir, cfg.Log.Level)
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//
//	providers, err := telemetry.InitTelemetry(ctx, logDir, version, 0)
//	if err != nil {
//	    return err
//	}
//	defer providers.Shutdown(context.Background())
//
// # Privacy
//
// Telemetry is local-only and does not transmit any data. Message content is
// never recorded, only ids, counts and durations.
package telemetry
