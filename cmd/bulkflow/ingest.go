package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/bulkflow/bulk"
	"github.com/kbukum/bulkflow/ingest"
)

type ingestFlags struct {
	file      string
	endpoints []string
	batchSize int
	buffer    int
	strict    bool
	failOn    bool
}

func newIngestCmd(root *rootOptions) *cobra.Command {
	f := &ingestFlags{}
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Submit the records of a delimited file to the bulk endpoints",
		Long: `Reads the input file frame by frame, drops the header line, maps every
record with at least two fields to an entity and submits batches of entities
round-robin to the endpoints. Every bulk response is reported; a response with
a non-2xx status only stops the run with --fail-on-status. The first
transport failure stops the run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.file = args[0]
			}
			return runIngest(cmd, root, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.file, "file", "f", "", "input file (default: ingest.file from config)")
	flags.StringSliceVarP(&f.endpoints, "endpoint", "e", nil, "bulk endpoint host:port, repeatable")
	flags.IntVarP(&f.batchSize, "batch-size", "b", 0, "entities per bulk request")
	flags.IntVar(&f.buffer, "buffer", 0, "batches prepared ahead of the balancer")
	flags.BoolVar(&f.strict, "strict", false, "fail when the last record has no trailing delimiter")
	flags.BoolVar(&f.failOn, "fail-on-status", false, "stop the run on the first non-2xx bulk response")
	return cmd
}

func runIngest(cmd *cobra.Command, root *rootOptions, f *ingestFlags) error {
	flags := cmd.Flags()
	app, telemetry, err := root.newApp(func(cfg *Config) {
		if f.file != "" {
			cfg.Ingest.File = f.file
		}
		if flags.Changed("endpoint") {
			cfg.Ingest.Endpoints = f.endpoints
		}
		if flags.Changed("batch-size") {
			cfg.Ingest.BatchSize = f.batchSize
		}
		if flags.Changed("buffer") {
			cfg.Ingest.Buffer = f.buffer
		}
		if flags.Changed("strict") {
			cfg.Ingest.StrictTermination = f.strict
		}
		if flags.Changed("fail-on-status") {
			cfg.Ingest.FailOnStatus = f.failOn
		}
	})
	if err != nil {
		return err
	}
	cfg := app.Cfg.Ingest
	if cfg.File == "" {
		return fmt.Errorf("no input file: pass --file or set ingest.file")
	}

	submitter, err := bulk.NewHTTPSubmitter(cfg.SubmitterConfig(),
		bulk.WithLogger(app.Logger), bulk.WithMetrics(telemetry.Metrics()))
	if err != nil {
		return err
	}
	if err := app.RegisterComponent(submitter); err != nil {
		return err
	}
	ingestor, err := ingest.New(cfg, submitter, app.Logger, ingest.WithMetrics(telemetry.Metrics()))
	if err != nil {
		return err
	}

	return app.RunTask(cmd.Context(), func(ctx context.Context) error {
		summary, err := ingestor.RunFile(ctx, cfg.File)
		printSummary(cmd, summary)
		return err
	})
}

func printSummary(cmd *cobra.Command, s ingest.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d records, %d entities, %d skipped, %d batches sent (%d rejected), %d entities delivered in %s\n",
		s.RunID, s.Records, s.Entities, s.Skipped, s.Batches, s.Rejected, s.Delivered, s.Duration.Round(time.Millisecond))
	endpoints := make([]string, 0, len(s.PerEndpoint))
	for ep := range s.PerEndpoint {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)
	for _, ep := range endpoints {
		fmt.Fprintf(out, "  %s: %d batches\n", ep, s.PerEndpoint[ep])
	}
	for _, res := range s.Results {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			fmt.Fprintf(out, "  batch %d on %s: status %d\n", res.Seq, res.Endpoint, res.StatusCode)
		}
	}
}
