package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/bulkflow/component"
)

// Component owns the telemetry providers for the lifetime of an App.
type Component struct {
	cfg         Config
	service     string
	version     string
	environment string

	metrics *Metrics
	mp      *sdkmetric.MeterProvider
	tp      *sdktrace.TracerProvider
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the telemetry component. Metrics are usable right away;
// they are bound to the global provider and start exporting once Start runs.
func NewComponent(cfg Config, service, version, environment string) (*Component, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(Meter(InstrumentationName))
	if err != nil {
		return nil, err
	}
	return &Component{
		cfg:         cfg,
		service:     service,
		version:     version,
		environment: environment,
		metrics:     metrics,
	}, nil
}

// Name returns the component name.
func (c *Component) Name() string { return "telemetry" }

// Metrics returns the shared instruments.
func (c *Component) Metrics() *Metrics { return c.metrics }

// Start installs the OTLP exporters when telemetry is enabled.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	mp, err := InitMeter(ctx, c.cfg.MeterConfig(c.service, c.version, c.environment))
	if err != nil {
		return fmt.Errorf("init meter: %w", err)
	}
	tp, err := InitTracer(ctx, c.cfg.TracerConfig(c.service, c.version, c.environment))
	if err != nil {
		_ = mp.Shutdown(ctx)
		return fmt.Errorf("init tracer: %w", err)
	}
	c.mp, c.tp = mp, tp
	return nil
}

// Stop flushes and shuts down the providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
	}
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
	}
	c.mp, c.tp = nil, nil
	return errors.Join(errs...)
}

// Health reports whether export is running.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled {
		h.Message = "export disabled"
	}
	return h
}
