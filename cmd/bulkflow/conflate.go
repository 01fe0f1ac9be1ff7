package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/bulkflow/rateadapter"
)

type conflateFlags struct {
	fast  time.Duration
	slow  time.Duration
	limit int
}

func newConflateCmd(root *rootOptions) *cobra.Command {
	f := &conflateFlags{}
	cmd := &cobra.Command{
		Use:   "conflate",
		Short: "Pair a slow tick with the number of fast ticks since the previous one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConflate(cmd, root, f)
		},
	}
	flags := cmd.Flags()
	flags.DurationVar(&f.fast, "fast", 0, "fast tick interval and initial delay (default 1s)")
	flags.DurationVar(&f.slow, "slow", 0, "slow tick interval and initial delay (default 3s)")
	flags.IntVarP(&f.limit, "limit", "n", 0, "number of samples (default 10)")
	return cmd
}

func runConflate(cmd *cobra.Command, root *rootOptions, f *conflateFlags) error {
	flags := cmd.Flags()
	app, telemetry, err := root.newApp(func(cfg *Config) {
		if flags.Changed("fast") {
			cfg.Rate.FastInitialDelay, cfg.Rate.FastInterval = f.fast, f.fast
		}
		if flags.Changed("slow") {
			cfg.Rate.SlowInitialDelay, cfg.Rate.SlowInterval = f.slow, f.slow
		}
		if flags.Changed("limit") {
			cfg.Rate.Limit = f.limit
		}
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		return rateadapter.Run(ctx, app.Cfg.Rate, func(_ context.Context, s rateadapter.Sample) error {
			_, err := fmt.Fprintf(out, "(%d, %s)\n", s.Count, s.At.Format(time.RFC3339Nano))
			return err
		}, rateadapter.WithLogger(app.Logger), rateadapter.WithMetrics(telemetry.Metrics()))
	})
}
