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
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/kbukum/bulkflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider and installs it globally.
// The returned provider must be shut down on exit to flush pending metrics.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
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

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// newResource describes the service without pinning a semconv schema version,
// so it merges cleanly with the SDK default resource.
func newResource(serviceName, serviceVersion, environment string) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
		attribute.String("deployment.environment", environment),
	)
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments for bulk submissions and rate sampling.
type Metrics struct {
	submissionTotal    metric.Int64Counter
	submissionDuration metric.Float64Histogram
	submissionActive   metric.Int64UpDownCounter
	entitiesTotal      metric.Int64Counter
	recordsSkipped     metric.Int64Counter
	conflatedCount     metric.Int64Histogram
	errorTotal         metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	submissionTotal, err := meter.Int64Counter("bulk.submission.total",
		metric.WithDescription("Bulk submissions by endpoint and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulk.submission.total counter: %w", err)
	}

	submissionDuration, err := meter.Float64Histogram("bulk.submission.duration",
		metric.WithDescription("Duration of bulk submissions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulk.submission.duration histogram: %w", err)
	}

	submissionActive, err := meter.Int64UpDownCounter("bulk.submission.active",
		metric.WithDescription("Bulk submissions currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulk.submission.active gauge: %w", err)
	}

	entitiesTotal, err := meter.Int64Counter("bulk.entities.total",
		metric.WithDescription("Entities delivered in successful submissions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulk.entities.total counter: %w", err)
	}

	recordsSkipped, err := meter.Int64Counter("ingest.records.skipped",
		metric.WithDescription("Input records dropped because they could not be mapped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ingest.records.skipped counter: %w", err)
	}

	conflatedCount, err := meter.Int64Histogram("rate.conflated.count",
		metric.WithDescription("Fast events folded into each slow sample"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rate.conflated.count histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		submissionTotal:    submissionTotal,
		submissionDuration: submissionDuration,
		submissionActive:   submissionActive,
		entitiesTotal:      entitiesTotal,
		recordsSkipped:     recordsSkipped,
		conflatedCount:     conflatedCount,
		errorTotal:         errorTotal,
	}, nil
}

// RecordSubmissionStart increments the in-flight submission count.
func (m *Metrics) RecordSubmissionStart(ctx context.Context, endpoint string) {
	m.submissionActive.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrEndpoint, endpoint)))
}

// RecordSubmissionEnd closes a submission opened with RecordSubmissionStart.
func (m *Metrics) RecordSubmissionEnd(ctx context.Context, endpoint, status string, entities int, duration time.Duration) {
	ep := attribute.String(AttrEndpoint, endpoint)
	m.submissionActive.Add(ctx, -1, metric.WithAttributes(ep))
	m.submissionTotal.Add(ctx, 1, metric.WithAttributes(ep, attribute.String(AttrStatus, status)))
	m.submissionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(ep))
	if status == StatusOK {
		m.entitiesTotal.Add(ctx, int64(entities), metric.WithAttributes(ep))
	}
}

// RecordSkipped counts records dropped by the mapper.
func (m *Metrics) RecordSkipped(ctx context.Context, n int) {
	m.recordsSkipped.Add(ctx, int64(n))
}

// RecordConflated records how many fast events one sample summarized.
func (m *Metrics) RecordConflated(ctx context.Context, count int) {
	m.conflatedCount.Record(ctx, int64(count))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
