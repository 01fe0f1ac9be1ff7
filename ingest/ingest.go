package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/bulkflow/bulk"
	apperrors "github.com/kbukum/bulkflow/errors"
	"github.com/kbukum/bulkflow/framing"
	"github.com/kbukum/bulkflow/logger"
	"github.com/kbukum/bulkflow/observability"
	"github.com/kbukum/bulkflow/pipeline"
	"github.com/kbukum/bulkflow/record"
)

// Summary describes a finished or aborted run.
type Summary struct {
	RunID string
	// Records counts data frames read, header excluded.
	Records int
	// Entities counts records that mapped to an entity.
	Entities int
	// Skipped counts records with too few fields.
	Skipped int
	// Batches counts submissions the endpoints answered.
	Batches int
	// Rejected counts answered submissions with a non-2xx status.
	Rejected int
	// Delivered counts entities in 2xx answered submissions.
	Delivered   int
	PerEndpoint map[string]int
	// Results holds one entry per answered submission, without the
	// response body.
	Results  []bulk.Result
	Duration time.Duration
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithMetrics records skipped records in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Ingestor) { i.metrics = m }
}

// Ingestor runs the bulk loading pipeline against a fixed set of endpoints.
type Ingestor struct {
	cfg       Config
	endpoints []string
	submitter bulk.Submitter
	metrics   *observability.Metrics
	log       *logger.Logger
}

// New validates cfg and returns an Ingestor. The endpoint list is copied;
// later changes to cfg.Endpoints have no effect.
func New(cfg Config, submitter bulk.Submitter, log *logger.Logger, opts ...Option) (*Ingestor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ingest config: %w", err)
	}
	if submitter == nil {
		return nil, apperrors.MissingField("submitter")
	}
	if log == nil {
		log = logger.Nop()
	}
	i := &Ingestor{
		cfg:       cfg,
		endpoints: slices.Clone(cfg.Endpoints),
		submitter: submitter,
		log:       log.WithComponent("ingest"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Endpoints returns the endpoints in branch order.
func (i *Ingestor) Endpoints() []string {
	return slices.Clone(i.endpoints)
}

// RunFile runs the pipeline over the file at path.
func (i *Ingestor) RunFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, apperrors.InvalidInput("file", err.Error()).WithCause(err)
	}
	defer f.Close()
	return i.Run(ctx, f)
}

// Run reads records from r until it is exhausted and submits them. The
// summary is returned also when the run fails, with the counts reached so
// far.
func (i *Ingestor) Run(ctx context.Context, r io.Reader) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString(), PerEndpoint: make(map[string]int, len(i.endpoints))}
	log := i.log.WithFields(logger.Fields(logger.FieldRunID, summary.RunID))

	ctx, span := observability.StartSpan(ctx, observability.SpanIngestRun,
		trace.WithAttributes(attribute.Int("ingest.endpoints", len(i.endpoints))))
	defer span.End()

	var records, entities, skipped atomic.Int64
	mapper := record.Mapper(i.cfg.FieldSeparator)

	frames := pipeline.Drop(framing.Frames(r, i.cfg.framingOptions()...), 1)
	frames = pipeline.Tap(frames, func(context.Context, []byte) error {
		records.Add(1)
		return nil
	})
	mapped := pipeline.FilterMap(frames, func(raw []byte) (record.Entity, bool) {
		e, ok := mapper(raw)
		if ok {
			entities.Add(1)
		} else {
			skipped.Add(1)
			log.Debug("record skipped", logger.Fields("record", string(raw)))
		}
		return e, ok
	})

	seq := 0
	batches := pipeline.Map(pipeline.Batch(mapped, i.cfg.BatchSize, 0),
		func(_ context.Context, group []record.Entity) (bulk.Batch, error) {
			b := bulk.NewBatch(seq, group)
			seq++
			return b, nil
		})
	if i.cfg.Buffer > 0 {
		batches = pipeline.Buffer(batches, i.cfg.Buffer)
	}

	results := pipeline.Balance(batches, i.branches(log)...)
	err := pipeline.Drain(results, func(_ context.Context, res bulk.Result) error {
		summary.Batches++
		summary.PerEndpoint[res.Endpoint]++
		accepted := res.StatusCode >= 200 && res.StatusCode < 300
		if accepted {
			summary.Delivered += res.Entities
		} else {
			summary.Rejected++
		}
		res.Body = nil
		summary.Results = append(summary.Results, res)
		msg := "batch delivered"
		if !accepted {
			msg = "batch rejected"
		}
		log.Info(msg, logger.MergeWithDuration(logger.Fields(
			logger.FieldBatchID, res.BatchID,
			logger.FieldSeq, res.Seq,
			logger.FieldBranch, res.Branch,
			logger.FieldEndpoint, res.Endpoint,
			logger.FieldStatus, res.StatusCode,
			logger.FieldCount, res.Entities,
		), res.Duration))
		return nil
	}).Run(ctx)

	summary.Records = int(records.Load())
	summary.Entities = int(entities.Load())
	summary.Skipped = int(skipped.Load())
	summary.Duration = time.Since(start)
	if i.metrics != nil && summary.Skipped > 0 {
		i.metrics.RecordSkipped(ctx, summary.Skipped)
	}

	fields := logger.MergeWithDuration(logger.Fields(
		"records", summary.Records,
		"entities", summary.Entities,
		"skipped", summary.Skipped,
		"batches", summary.Batches,
		"rejected", summary.Rejected,
	), summary.Duration)
	if err != nil {
		observability.SetSpanError(span, err)
		log.WithError(err).Error("ingest failed", fields)
		return summary, err
	}
	log.Info("ingest finished", fields)
	return summary, nil
}

// branches returns one worker per endpoint. The index of the worker is the
// branch number the balancer routes batch i mod N to.
func (i *Ingestor) branches(log *logger.Logger) []func(context.Context, bulk.Batch) (bulk.Result, error) {
	out := make([]func(context.Context, bulk.Batch) (bulk.Result, error), len(i.endpoints))
	for idx, endpoint := range i.endpoints {
		out[idx] = func(ctx context.Context, b bulk.Batch) (bulk.Result, error) {
			log.Debug("dispatching batch", logger.Fields(
				logger.FieldBatchID, b.ID,
				logger.FieldSeq, b.Seq,
				logger.FieldBranch, idx,
				logger.FieldEndpoint, endpoint,
			))
			res, err := i.submitter.Submit(ctx, endpoint, b)
			if err != nil {
				return res, fmt.Errorf("batch %d on branch %d: %w", b.Seq, idx, err)
			}
			res.Branch = idx
			res.Endpoint = endpoint
			return res, nil
		}
	}
	return out
}
