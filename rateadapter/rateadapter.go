// Package rateadapter pairs a slow periodic signal with a summary of a fast
// one. Fast ticks are counted between two slow ticks, so the slow side never
// waits on a queue of fast events.
package rateadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/bulkflow/logger"
	"github.com/kbukum/bulkflow/observability"
	"github.com/kbukum/bulkflow/pipeline"
	"github.com/kbukum/bulkflow/validation"
)

// Config configures the two tick sources and how many samples to take.
type Config struct {
	FastInitialDelay time.Duration `yaml:"fast_initial_delay" mapstructure:"fast_initial_delay" validate:"gt=0"`
	FastInterval     time.Duration `yaml:"fast_interval" mapstructure:"fast_interval" validate:"gt=0"`
	SlowInitialDelay time.Duration `yaml:"slow_initial_delay" mapstructure:"slow_initial_delay" validate:"gt=0"`
	SlowInterval     time.Duration `yaml:"slow_interval" mapstructure:"slow_interval" validate:"gt=0"`
	Limit            int           `yaml:"limit" mapstructure:"limit" validate:"gte=1"`
}

// ApplyDefaults sets a 1s fast tick, a 3s slow tick and ten samples.
func (c *Config) ApplyDefaults() {
	if c.FastInterval == 0 {
		c.FastInterval = time.Second
	}
	if c.FastInitialDelay == 0 {
		c.FastInitialDelay = c.FastInterval
	}
	if c.SlowInterval == 0 {
		c.SlowInterval = 3 * time.Second
	}
	if c.SlowInitialDelay == 0 {
		c.SlowInitialDelay = c.SlowInterval
	}
	if c.Limit == 0 {
		c.Limit = 10
	}
}

// Validate checks that every delay and interval is positive.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Sample is one slow tick paired with the number of fast ticks seen since
// the previous sample.
type Sample struct {
	Seq   int
	Count int
	At    time.Time
}

// Option configures Run.
type Option func(*options)

type options struct {
	log     *logger.Logger
	metrics *observability.Metrics
}

// WithLogger logs every sample to l.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records every sample's count in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Run takes cfg.Limit samples and passes each to observe. It returns when
// the limit is reached, when observe fails or when ctx is done.
func Run(ctx context.Context, cfg Config, observe func(context.Context, Sample) error, opts ...Option) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rate config: %w", err)
	}
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithComponent("rate")

	counts := pipeline.Conflate(
		pipeline.Ticks(cfg.FastInitialDelay, cfg.FastInterval),
		func(time.Time) int { return 1 },
		func(n int, _ time.Time) int { return n + 1 },
	)
	seq := 0
	samples := pipeline.Map(pipeline.Zip(pipeline.Ticks(cfg.SlowInitialDelay, cfg.SlowInterval), counts),
		func(_ context.Context, p pipeline.Pair[time.Time, int]) (Sample, error) {
			s := Sample{Seq: seq, Count: p.Second, At: p.First}
			seq++
			return s, nil
		})

	return pipeline.ForEach(ctx, pipeline.Take(samples, cfg.Limit), func(ctx context.Context, s Sample) error {
		log.Info("sample", logger.Fields(logger.FieldSeq, s.Seq, logger.FieldCount, s.Count, "at", s.At))
		if o.metrics != nil {
			o.metrics.RecordConflated(ctx, s.Count)
		}
		return observe(ctx, s)
	})
}
