// Package observability provides OpenTelemetry tracing and metrics for
// transcription runs.
//
// When disabled, the global no-op providers stay in place and every span and
// instrument is free. Setup wires OTLP/HTTP exporters for both signals:
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "wavscribe", version.Version, cfg.Environment)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanTranscribe)
//	defer span.End()
//
//	metrics, err := observability.NewMetrics(observability.Meter("wavscribe"))
//	metrics.RecordRun(ctx, "vosk-server", "ok", duration)
//
// Health:
//
//	health := observability.NewServiceHealth("wavscribe", version.Version)
//	health.AddComponent(observability.Health{Name: "engine", Status: observability.HealthStatusUp})
package observability
