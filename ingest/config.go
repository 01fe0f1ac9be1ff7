package ingest

import (
	"time"

	"github.com/kbukum/bulkflow/bulk"
	"github.com/kbukum/bulkflow/framing"
	"github.com/kbukum/bulkflow/record"
	"github.com/kbukum/bulkflow/validation"
)

// DefaultBatchSize is the number of entities per bulk request.
const DefaultBatchSize = 5

// Config configures an ingest run.
type Config struct {
	// File is the input read by the CLI when no path argument is given.
	File      string   `yaml:"file" mapstructure:"file"`
	Endpoints []string `yaml:"endpoints" mapstructure:"endpoints" validate:"required,min=1,dive,hostname_port"`
	BatchSize int      `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=1"`

	MaxFrameLength    int    `yaml:"max_frame_length" mapstructure:"max_frame_length" validate:"gte=1"`
	Delimiter         string `yaml:"delimiter" mapstructure:"delimiter"`
	StrictTermination bool   `yaml:"strict_termination" mapstructure:"strict_termination"`
	FieldSeparator    string `yaml:"field_separator" mapstructure:"field_separator"`

	Index   string        `yaml:"index" mapstructure:"index"`
	Type    string        `yaml:"type" mapstructure:"type"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	// FailOnStatus aborts the run on the first non-2xx bulk response.
	FailOnStatus bool `yaml:"fail_on_status" mapstructure:"fail_on_status"`
	// Buffer holds up to this many prepared batches ahead of the balancer.
	Buffer int `yaml:"buffer" mapstructure:"buffer" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxFrameLength == 0 {
		c.MaxFrameLength = framing.DefaultMaxFrameLength
	}
	if c.Delimiter == "" {
		c.Delimiter = framing.DefaultDelimiter
	}
	if c.FieldSeparator == "" {
		c.FieldSeparator = record.DefaultSeparator
	}
	if c.Index == "" {
		c.Index = bulk.DefaultIndex
	}
	if c.Type == "" {
		c.Type = bulk.DefaultType
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks the struct tags and the framing settings.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return validation.New().
		NotEmpty("delimiter", c.Delimiter).
		NotEmpty("field_separator", c.FieldSeparator).
		Custom(c.FieldSeparator != c.Delimiter, "field_separator", "must differ from delimiter").
		Validate()
}

// SubmitterConfig returns the HTTP submitter settings of the run.
func (c *Config) SubmitterConfig() bulk.Config {
	return bulk.Config{
		Index:               c.Index,
		Type:                c.Type,
		Timeout:             c.Timeout,
		MaxIdleConnsPerHost: 1,
		FailOnStatus:        c.FailOnStatus,
	}
}

func (c *Config) framingOptions() []framing.Option {
	opts := []framing.Option{
		framing.WithDelimiter(c.Delimiter),
		framing.WithMaxFrameLength(c.MaxFrameLength),
	}
	if c.StrictTermination {
		opts = append(opts, framing.WithStrictTermination())
	}
	return opts
}
