package bulk

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/bulkflow/component"
	apperrors "github.com/kbukum/bulkflow/errors"
	"github.com/kbukum/bulkflow/httpclient"
	"github.com/kbukum/bulkflow/logger"
	"github.com/kbukum/bulkflow/observability"
	"github.com/kbukum/bulkflow/resilience"
)

// Submitter delivers one batch to one endpoint.
type Submitter interface {
	Submit(ctx context.Context, endpoint string, batch Batch) (Result, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, endpoint string, batch Batch) (Result, error)

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, endpoint string, batch Batch) (Result, error) {
	return f(ctx, endpoint, batch)
}

// Config configures an HTTPSubmitter.
type Config struct {
	Index   string
	Type    string
	Timeout time.Duration
	// MaxIdleConnsPerHost keeps connections to each endpoint alive between batches.
	MaxIdleConnsPerHost int
	// FailOnStatus turns a non-2xx response into a submission failure.
	// By default any response is a result and only transport or encoding
	// errors fail.
	FailOnStatus bool
}

// SubmitterOption configures optional HTTPSubmitter dependencies.
type SubmitterOption func(*HTTPSubmitter)

// WithLogger sets the submitter logger.
func WithLogger(l *logger.Logger) SubmitterOption {
	return func(s *HTTPSubmitter) { s.log = l.WithComponent("bulk") }
}

// WithMetrics records every submission in m.
func WithMetrics(m *observability.Metrics) SubmitterOption {
	return func(s *HTTPSubmitter) { s.metrics = m }
}

// HTTPSubmitter posts batches to the _bulk path of an endpoint.
type HTTPSubmitter struct {
	client    *httpclient.Client
	encoder   Encoder
	bulkheads *resilience.BulkheadGroup
	metrics   *observability.Metrics
	log       *logger.Logger

	failOnStatus bool
}

var (
	_ Submitter           = (*HTTPSubmitter)(nil)
	_ component.Component = (*HTTPSubmitter)(nil)
)

// NewHTTPSubmitter creates a submitter. Submissions never retry: a failed
// request fails the batch.
func NewHTTPSubmitter(cfg Config, opts ...SubmitterOption) (*HTTPSubmitter, error) {
	client, err := httpclient.New(httpclient.Config{
		Timeout:             cfg.Timeout,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
	})
	if err != nil {
		return nil, err
	}
	s := &HTTPSubmitter{
		client:       client,
		encoder:      NewEncoder(cfg.Index, cfg.Type),
		log:          logger.Nop(),
		failOnStatus: cfg.FailOnStatus,
	}
	s.bulkheads = resilience.NewBulkheadGroup(resilience.BulkheadConfig{
		MaxConcurrent: 1,
		OnReject: func(endpoint string) {
			s.log.Error("overlapping submission rejected", logger.Fields(logger.FieldEndpoint, endpoint))
		},
	})
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BulkURL returns the bulk URL for endpoint. Endpoints are host:port
// addresses; a full URL is used as the base unchanged.
func BulkURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/") + "/_bulk"
	}
	return "http://" + endpoint + "/_bulk"
}

// Submit encodes batch and posts it to endpoint. Every HTTP response,
// whatever its status, is returned as a Result. Transport and encoding
// failures, and non-2xx statuses when FailOnStatus is set, are returned as a
// SUBMISSION_FAILED error.
func (s *HTTPSubmitter) Submit(ctx context.Context, endpoint string, batch Batch) (Result, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanBulkSubmit,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrEndpoint, endpoint),
			attribute.String(observability.AttrBatchID, batch.ID),
			attribute.Int(observability.AttrBatchSeq, batch.Seq),
			attribute.Int(observability.AttrEntities, batch.Len()),
		))
	defer span.End()

	result := Result{BatchID: batch.ID, Seq: batch.Seq, Endpoint: endpoint, Entities: batch.Len()}

	payload, err := s.encoder.Payload(batch.Entities)
	if err != nil {
		return result, s.fail(ctx, span, endpoint, httpclient.NewEncodingError(err.Error()))
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordSubmissionStart(ctx, endpoint)
	}
	resp, err := resilience.ExecuteWithResult(s.bulkheads.Get(endpoint), ctx, func() (*httpclient.Response, error) {
		return s.client.Do(ctx, httpclient.Request{
			Method:  http.MethodPost,
			Path:    BulkURL(endpoint),
			Headers: map[string]string{"Content-Type": ContentType},
			Body:    payload,
		})
	})
	result.Duration = time.Since(start)
	if resp != nil {
		result.StatusCode = resp.StatusCode
		result.Body = resp.Body
		span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))
	}

	if err != nil && resp != nil && !s.failOnStatus {
		err = nil
	}

	status := observability.StatusOK
	switch {
	case err != nil:
		status = observability.StatusError
	case !resp.IsSuccess():
		status = observability.StatusRejected
	}
	if s.metrics != nil {
		s.metrics.RecordSubmissionEnd(ctx, endpoint, status, batch.Len(), result.Duration)
	}
	if err != nil {
		return result, s.fail(ctx, span, endpoint, err)
	}

	if status == observability.StatusRejected {
		s.log.Warn("bulk request rejected", logger.Fields(
			logger.FieldEndpoint, endpoint,
			logger.FieldBatchID, batch.ID,
			logger.FieldStatus, resp.StatusCode,
			"body", string(resp.Body),
		))
		return result, nil
	}

	result.Items, result.ItemErrors = parseResponse(resp.Body)
	for _, ie := range result.ItemErrors {
		s.log.Warn("document rejected", logger.Fields(
			logger.FieldEndpoint, endpoint,
			logger.FieldBatchID, batch.ID,
			"position", ie.Position,
			logger.FieldStatus, ie.Status,
			"reason", ie.Reason,
		))
	}
	s.log.Debug("batch submitted", logger.MergeWithDuration(logger.Fields(
		logger.FieldEndpoint, endpoint,
		logger.FieldBatchID, batch.ID,
		logger.FieldSeq, batch.Seq,
		logger.FieldStatus, result.StatusCode,
	), result.Duration))
	return result, nil
}

func (s *HTTPSubmitter) fail(ctx context.Context, span trace.Span, endpoint string, cause error) error {
	reason := errorCode(cause)
	details := map[string]any{"reason": reason}
	if code := httpclient.StatusCodeOf(cause); code != 0 {
		details["status_code"] = code
	}
	err := apperrors.SubmissionFailed(endpoint, cause).WithDetails(details)
	observability.SetSpanError(span, err)
	if s.metrics != nil {
		s.metrics.RecordError(ctx, reason, "bulk")
	}
	return err
}

// errorCode maps a submission failure to the code recorded in metrics.
func errorCode(cause error) string {
	switch {
	case httpclient.IsTimeout(cause):
		return string(apperrors.ErrCodeTimeout)
	case httpclient.IsConnection(cause):
		return string(apperrors.ErrCodeConnectionFailed)
	}
	if apperrors.IsAppError(cause) {
		return string(apperrors.CodeOf(cause))
	}
	return string(apperrors.ErrCodeSubmissionFailed)
}

// InFlight returns the number of running submissions per endpoint.
func (s *HTTPSubmitter) InFlight() map[string]int {
	return s.bulkheads.InUse()
}

// Name implements component.Component.
func (s *HTTPSubmitter) Name() string { return "bulk-submitter" }

// Start implements component.Component.
func (s *HTTPSubmitter) Start(_ context.Context) error { return nil }

// Stop closes idle connections to the endpoints.
func (s *HTTPSubmitter) Stop(_ context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

// Health implements component.Component.
func (s *HTTPSubmitter) Health(_ context.Context) component.Health {
	return component.Health{Name: s.Name(), Status: component.StatusHealthy}
}
