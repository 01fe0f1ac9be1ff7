package main

import (
	"fmt"

	"github.com/kbukum/bulkflow/config"
	"github.com/kbukum/bulkflow/ingest"
	"github.com/kbukum/bulkflow/observability"
	"github.com/kbukum/bulkflow/rateadapter"
	"github.com/kbukum/bulkflow/version"
)

const appName = "bulkflow"

// Config is the file and environment configuration of the CLI.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Ingest        ingest.Config        `yaml:"ingest" mapstructure:"ingest"`
	Rate          rateadapter.Config   `yaml:"rate" mapstructure:"rate"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills unset fields of every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = appName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Ingest.ApplyDefaults()
	c.Rate.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks the sections shared by all commands. Commands validate
// their own section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

func loadConfig(path, envFile string) (*Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(appName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
