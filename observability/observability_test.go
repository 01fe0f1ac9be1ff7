package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/bulkflow/component"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("expected Endpoint 'localhost:4318', got %s", cfg.Endpoint)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
	mc := cfg.MeterConfig("bulkflow", "1.0.0", "test")
	if mc.ServiceName != "bulkflow" || mc.Endpoint != cfg.Endpoint {
		t.Errorf("meter config = %+v", mc)
	}
	tc := cfg.TracerConfig("bulkflow", "1.0.0", "test")
	if tc.Environment != "test" || tc.SampleRate != cfg.SampleRate {
		t.Errorf("tracer config = %+v", tc)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{SampleRate: 0.5, Endpoint: "localhost:4318"}, ""},
		{"empty endpoint", Config{SampleRate: 1}, ""},
		{"negative rate", Config{SampleRate: -0.1}, "sample_rate: must be at least 0"},
		{"rate above one", Config{SampleRate: 1.5}, "sample_rate: must be at most 1"},
		{"endpoint without port", Config{Endpoint: "collector"}, "endpoint: must be a host:port address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewMetrics_Noop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}
	ctx := context.Background()
	metrics.RecordSubmissionStart(ctx, "localhost:9200")
	metrics.RecordSubmissionEnd(ctx, "localhost:9200", StatusError, 5, 100*time.Millisecond)
	metrics.RecordSkipped(ctx, 2)
	metrics.RecordConflated(ctx, 3)
	metrics.RecordError(ctx, "SUBMISSION_FAILED", "bulk")
}

func TestMetrics_RecordsSubmissions(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	metrics.RecordSubmissionStart(ctx, "es-0:9200")
	metrics.RecordSubmissionEnd(ctx, "es-0:9200", StatusOK, 5, 10*time.Millisecond)
	metrics.RecordSubmissionStart(ctx, "es-1:9200")
	metrics.RecordSubmissionEnd(ctx, "es-1:9200", StatusError, 1, 10*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	if sums["bulk.submission.total"] != 2 {
		t.Errorf("submission total = %d, want 2", sums["bulk.submission.total"])
	}
	if sums["bulk.entities.total"] != 5 {
		t.Errorf("entities total = %d, want 5 (failed submissions excluded)", sums["bulk.entities.total"])
	}
	if sums["bulk.submission.active"] != 0 {
		t.Errorf("active = %d, want 0", sums["bulk.submission.active"])
	}
}

func TestStartSpan_RecordsError(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartSpan(context.Background(), SpanBulkSubmit)
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != SpanBulkSubmit {
		t.Errorf("span name = %q", ended[0].Name())
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("expected one error event, got %d", len(ended[0].Events()))
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
	if got := samplerFor(0.5).Description(); got == "AlwaysOnSampler" || got == "AlwaysOffSampler" {
		t.Errorf("ratio sampler expected, got %q", got)
	}
}

func TestComponent_Disabled(t *testing.T) {
	c, err := NewComponent(Config{}, "bulkflow", "dev", "test")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if c.Metrics() == nil {
		t.Error("metrics should be available")
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("health = %+v", h)
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("stop: %v", err)
	}
}

func TestComponent_InvalidConfig(t *testing.T) {
	if _, err := NewComponent(Config{SampleRate: 2}, "bulkflow", "dev", "test"); err == nil {
		t.Error("expected error for invalid sample rate")
	}
}
