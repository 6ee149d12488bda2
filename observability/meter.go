package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/wavscribe/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by transcription runs.
type Metrics struct {
	runTotal      metric.Int64Counter
	runDuration   metric.Float64Histogram
	runActive     metric.Int64UpDownCounter
	chunkTotal    metric.Int64Counter
	audioSeconds  metric.Float64Counter
	segmentTotal  metric.Int64Counter
	errorTotal    metric.Int64Counter
	requestTotal  metric.Int64Counter
	requestLength metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("transcription.runs",
		metric.WithDescription("Total number of transcription runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.runs counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("transcription.duration",
		metric.WithDescription("Wall-clock duration of transcription runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.duration histogram: %w", err)
	}

	runActive, err := meter.Int64UpDownCounter("transcription.active",
		metric.WithDescription("Number of transcription runs in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.active gauge: %w", err)
	}

	chunkTotal, err := meter.Int64Counter("transcription.chunks",
		metric.WithDescription("Audio chunks fed to the recognition engine"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.chunks counter: %w", err)
	}

	audioSeconds, err := meter.Float64Counter("transcription.audio",
		metric.WithDescription("Seconds of audio fed to the recognition engine"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.audio counter: %w", err)
	}

	segmentTotal, err := meter.Int64Counter("transcription.segments",
		metric.WithDescription("Transcript segments produced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.segments counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("transcription.errors",
		metric.WithDescription("Failed runs by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.errors counter: %w", err)
	}

	requestTotal, err := meter.Int64Counter("http.requests",
		metric.WithDescription("HTTP requests served"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.requests counter: %w", err)
	}

	requestLength, err := meter.Float64Histogram("http.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.duration histogram: %w", err)
	}

	return &Metrics{
		runTotal:      runTotal,
		runDuration:   runDuration,
		runActive:     runActive,
		chunkTotal:    chunkTotal,
		audioSeconds:  audioSeconds,
		segmentTotal:  segmentTotal,
		errorTotal:    errorTotal,
		requestTotal:  requestTotal,
		requestLength: requestLength,
	}, nil
}

// RecordRunStart increments the in-progress run count.
func (m *Metrics) RecordRunStart(ctx context.Context) {
	m.runActive.Add(ctx, 1)
}

// RecordRunEnd decrements in-progress runs and records the completed run.
func (m *Metrics) RecordRunEnd(ctx context.Context, engine, status string, duration time.Duration) {
	m.runActive.Add(ctx, -1)
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("engine", engine),
		attribute.String("status", status),
	))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("engine", engine),
	))
}

// RecordChunk records one chunk of the given length in seconds.
func (m *Metrics) RecordChunk(ctx context.Context, engine string, seconds float64) {
	attrs := metric.WithAttributes(attribute.String("engine", engine))
	m.chunkTotal.Add(ctx, 1, attrs)
	m.audioSeconds.Add(ctx, seconds, attrs)
}

// RecordSegments records the segments of a successful run.
func (m *Metrics) RecordSegments(ctx context.Context, engine string, n int) {
	m.segmentTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("engine", engine)))
}

// RecordError records a failed run by error code.
func (m *Metrics) RecordError(ctx context.Context, code, engine string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("engine", engine),
	))
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestLength.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
