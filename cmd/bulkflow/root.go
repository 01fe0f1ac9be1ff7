package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/bulkflow/bootstrap"
	"github.com/kbukum/bulkflow/logger"
	"github.com/kbukum/bulkflow/observability"
	"github.com/kbukum/bulkflow/version"
)

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string

	// log overrides the logger built from config; tests set it.
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Batch, balance and submit delimited records to bulk endpoints",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default: ./config.yml or ./cmd/bulkflow/config.yml)")
	flags.StringVar(&opts.envFile, "env-file", "", ".env file with BULKFLOW_* overrides")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (json, console)")

	cmd.AddCommand(newIngestCmd(opts), newConflateCmd(opts), newVersionCmd())
	return cmd
}

// newApp loads the configuration, lets mutate apply flag overrides and
// returns an App with the telemetry component registered.
func (o *rootOptions) newApp(mutate func(*Config)) (*bootstrap.App[*Config], *observability.Component, error) {
	cfg, err := loadConfig(o.configFile, o.envFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if mutate != nil {
		mutate(cfg)
	}

	var appOpts []bootstrap.Option
	if o.log != nil {
		appOpts = append(appOpts, bootstrap.WithLogger(o.log))
	}
	app, err := bootstrap.NewApp(cfg, appOpts...)
	if err != nil {
		return nil, nil, err
	}

	telemetry, err := observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	if err := app.RegisterComponent(telemetry); err != nil {
		return nil, nil, err
	}
	return app, telemetry, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(appName, version.Get().String())
		},
	}
}
