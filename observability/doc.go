// Package observability wires OpenTelemetry metrics and tracing.
//
// InitMeter and InitTracer install OTLP/HTTP exporters as the global
// providers. Metrics holds the instruments recorded by the bulk submitter and
// the rate adapter. Component bundles both providers with a start/stop
// lifecycle; when disabled the global no-op providers stay in place and
// every instrument still works.
package observability
