package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/bulkflow/bulk"
	apperrors "github.com/kbukum/bulkflow/errors"
	"github.com/kbukum/bulkflow/framing"
	"github.com/kbukum/bulkflow/record"
)

const vikings = "name;place\nA;X\nB;Y\nC;Z\nD;W\nE;V\nF;U\n"

type submission struct {
	endpoint string
	batch    bulk.Batch
}

// recordingSubmitter accepts every batch and remembers where it went.
type recordingSubmitter struct {
	mu   sync.Mutex
	subs []submission
}

func (s *recordingSubmitter) Submit(_ context.Context, endpoint string, b bulk.Batch) (bulk.Result, error) {
	s.mu.Lock()
	s.subs = append(s.subs, submission{endpoint, b})
	s.mu.Unlock()
	return bulk.Result{BatchID: b.ID, Seq: b.Seq, Entities: b.Len(), StatusCode: http.StatusOK}, nil
}

func (s *recordingSubmitter) bySeq() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]submission(nil), s.subs...)
	sort.Slice(out, func(i, j int) bool { return out[i].batch.Seq < out[j].batch.Seq })
	return out
}

func newIngestor(t *testing.T, cfg Config, s bulk.Submitter) *Ingestor {
	t.Helper()
	in, err := New(cfg, s, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return in
}

func TestRun_BatchesOfFive(t *testing.T) {
	sub := &recordingSubmitter{}
	in := newIngestor(t, Config{Endpoints: []string{"localhost:9200"}}, sub)

	summary, err := in.Run(context.Background(), strings.NewReader(vikings))
	if err != nil {
		t.Fatal(err)
	}
	subs := sub.bySeq()
	if len(subs) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(subs))
	}
	if subs[0].batch.Len() != 5 || subs[1].batch.Len() != 1 {
		t.Errorf("batch sizes = %d, %d, want 5, 1", subs[0].batch.Len(), subs[1].batch.Len())
	}
	want := []record.Entity{{Name: "A", Place: "X"}, {Name: "B", Place: "Y"}, {Name: "C", Place: "Z"}, {Name: "D", Place: "W"}, {Name: "E", Place: "V"}}
	for i, e := range subs[0].batch.Entities {
		if e != want[i] {
			t.Errorf("entity %d = %+v, want %+v", i, e, want[i])
		}
	}
	if subs[1].batch.Entities[0] != (record.Entity{Name: "F", Place: "U"}) {
		t.Errorf("last entity = %+v", subs[1].batch.Entities[0])
	}
	if summary.Records != 6 || summary.Entities != 6 || summary.Skipped != 0 {
		t.Errorf("summary counts = %+v", summary)
	}
	if summary.Batches != 2 || summary.Delivered != 6 {
		t.Errorf("summary delivery = %d batches, %d entities", summary.Batches, summary.Delivered)
	}
	if summary.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestRun_RoundRobinTwoEndpoints(t *testing.T) {
	sub := &recordingSubmitter{}
	cfg := Config{Endpoints: []string{"localhost:9200", "localhost:9201"}, BatchSize: 1}
	in := newIngestor(t, cfg, sub)

	summary, err := in.Run(context.Background(), strings.NewReader("header\nA;X\nB;Y\nC;Z\n"))
	if err != nil {
		t.Fatal(err)
	}
	subs := sub.bySeq()
	want := []string{"localhost:9200", "localhost:9201", "localhost:9200"}
	if len(subs) != len(want) {
		t.Fatalf("expected %d submissions, got %d", len(want), len(subs))
	}
	for i, s := range subs {
		if s.batch.Seq != i {
			t.Errorf("submission %d has seq %d", i, s.batch.Seq)
		}
		if s.endpoint != want[i] {
			t.Errorf("batch %d went to %s, want %s", i, s.endpoint, want[i])
		}
	}
	if summary.PerEndpoint["localhost:9200"] != 2 || summary.PerEndpoint["localhost:9201"] != 1 {
		t.Errorf("per endpoint = %v", summary.PerEndpoint)
	}
	for _, res := range summary.Results {
		if res.Branch != res.Seq%2 {
			t.Errorf("result seq %d on branch %d", res.Seq, res.Branch)
		}
	}
}

func TestRun_CountConservation(t *testing.T) {
	var input strings.Builder
	input.WriteString("header\n")
	for i := 0; i < 103; i++ {
		fmt.Fprintf(&input, "name%d;place%d\n", i, i)
	}
	sub := &recordingSubmitter{}
	cfg := Config{Endpoints: []string{"h:1", "h:2", "h:3"}, BatchSize: 5, Buffer: 2}
	summary, err := newIngestor(t, cfg, sub).Run(context.Background(), strings.NewReader(input.String()))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Batches != 21 || summary.Delivered != 103 {
		t.Errorf("batches=%d delivered=%d, want 21 and 103", summary.Batches, summary.Delivered)
	}
	seen := map[string]bool{}
	for _, s := range sub.bySeq() {
		for _, e := range s.batch.Entities {
			if seen[e.Name] {
				t.Errorf("entity %s delivered twice", e.Name)
			}
			seen[e.Name] = true
		}
		if want := cfg.Endpoints[s.batch.Seq%3]; s.endpoint != want {
			t.Errorf("batch %d went to %s, want %s", s.batch.Seq, s.endpoint, want)
		}
	}
	if len(seen) != 103 {
		t.Errorf("delivered %d distinct entities, want 103", len(seen))
	}
}

func TestRun_SkipsUnmappableRecords(t *testing.T) {
	sub := &recordingSubmitter{}
	in := newIngestor(t, Config{Endpoints: []string{"h:1"}}, sub)

	summary, err := in.Run(context.Background(), strings.NewReader("h\nA;X\nlonely\nB;Y;Z\n\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Records != 4 || summary.Entities != 2 || summary.Skipped != 2 {
		t.Errorf("summary = %+v", summary)
	}
	subs := sub.bySeq()
	if len(subs) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(subs))
	}
	want := []record.Entity{{Name: "A", Place: "X"}, {Name: "B", Place: "Z"}}
	for i, e := range subs[0].batch.Entities {
		if e != want[i] {
			t.Errorf("entity %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func TestRun_HeaderOnly(t *testing.T) {
	sub := &recordingSubmitter{}
	summary, err := newIngestor(t, Config{Endpoints: []string{"h:1"}}, sub).Run(context.Background(), strings.NewReader("name;place\n"))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Batches != 0 || len(sub.bySeq()) != 0 {
		t.Errorf("expected no batches, got %+v", summary)
	}
}

func TestRun_SubmissionFailureCancelsOtherBranches(t *testing.T) {
	boom := apperrors.SubmissionFailed("h:2", errors.New("connection reset"))
	cancelled := make(chan struct{})
	sub := bulk.SubmitterFunc(func(ctx context.Context, endpoint string, b bulk.Batch) (bulk.Result, error) {
		if endpoint == "h:2" {
			return bulk.Result{}, boom
		}
		select {
		case <-ctx.Done():
			close(cancelled)
			return bulk.Result{}, ctx.Err()
		case <-time.After(2 * time.Second):
			return bulk.Result{}, errors.New("branch was not cancelled")
		}
	})
	in := newIngestor(t, Config{Endpoints: []string{"h:1", "h:2"}, BatchSize: 1}, sub)

	summary, err := in.Run(context.Background(), strings.NewReader(vikings))
	if !errors.Is(err, boom) {
		t.Fatalf("expected submission error, got %v", err)
	}
	if !strings.Contains(err.Error(), "batch 1 on branch 1") {
		t.Errorf("error should name the batch: %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Error("the other branch did not observe cancellation")
	}
	if summary.Batches != 0 {
		t.Errorf("expected no delivered batches, got %d", summary.Batches)
	}
}

func TestRun_FrameTooLarge(t *testing.T) {
	sub := &recordingSubmitter{}
	cfg := Config{Endpoints: []string{"h:1"}, MaxFrameLength: 16}
	input := "header\nA;X\n" + strings.Repeat("x", 64) + ";Y\nB;Z\n"

	_, err := newIngestor(t, cfg, sub).Run(context.Background(), strings.NewReader(input))
	if !errors.Is(err, framing.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestRun_StrictTermination(t *testing.T) {
	sub := &recordingSubmitter{}
	cfg := Config{Endpoints: []string{"h:1"}, StrictTermination: true}
	_, err := newIngestor(t, cfg, sub).Run(context.Background(), strings.NewReader("header\nA;X"))
	if !errors.Is(err, framing.ErrUnterminatedFrame) {
		t.Fatalf("expected ErrUnterminatedFrame, got %v", err)
	}

	summary, err := newIngestor(t, Config{Endpoints: []string{"h:1"}}, sub).Run(context.Background(), strings.NewReader("header\nA;X"))
	if err != nil || summary.Delivered != 1 {
		t.Errorf("lenient run: delivered=%d err=%v", summary.Delivered, err)
	}
}

func TestRun_CustomSeparators(t *testing.T) {
	sub := &recordingSubmitter{}
	cfg := Config{Endpoints: []string{"h:1"}, Delimiter: "|", FieldSeparator: ","}
	summary, err := newIngestor(t, cfg, sub).Run(context.Background(), strings.NewReader("name,place|A,X|B,Y|"))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Delivered != 2 {
		t.Errorf("delivered = %d, want 2", summary.Delivered)
	}
}

func TestRunFile_Missing(t *testing.T) {
	_, err := newIngestor(t, Config{Endpoints: []string{"h:1"}}, &recordingSubmitter{}).RunFile(context.Background(), "/does/not/exist.csv")
	if !errors.Is(err, apperrors.New(apperrors.ErrCodeInvalidInput, "")) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestRun_AgainstHTTPEndpoints(t *testing.T) {
	var mu sync.Mutex
	bodies := map[string][]string{}
	newServer := func(name string) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/_bulk" || r.Header.Get("Content-Type") != bulk.ContentType {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			bodies[name] = append(bodies[name], string(body))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	first, second := newServer("first"), newServer("second")

	cfg := Config{
		Endpoints: []string{strings.TrimPrefix(first.URL, "http://"), strings.TrimPrefix(second.URL, "http://")},
		BatchSize: 2,
		Timeout:   2 * time.Second,
	}
	cfg.ApplyDefaults()
	submitter, err := bulk.NewHTTPSubmitter(cfg.SubmitterConfig())
	if err != nil {
		t.Fatal(err)
	}
	summary, err := newIngestor(t, cfg, submitter).Run(context.Background(), strings.NewReader(vikings))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Batches != 3 {
		t.Fatalf("batches = %d, want 3", summary.Batches)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies["first"]) != 2 || len(bodies["second"]) != 1 {
		t.Fatalf("requests per endpoint: first=%d second=%d", len(bodies["first"]), len(bodies["second"]))
	}
	want := "{\"index\":{\"_index\":\"vikings\",\"_type\":\"vikings\"}}\n{\"name\":\"C\",\"place\":\"Z\"}\n" +
		"{\"index\":{\"_index\":\"vikings\",\"_type\":\"vikings\"}}\n{\"name\":\"D\",\"place\":\"W\"}\n"
	if bodies["second"][0] != want {
		t.Errorf("second endpoint body = %q, want %q", bodies["second"][0], want)
	}
}

func TestRun_RejectedStatusIsReported(t *testing.T) {
	sub := bulk.SubmitterFunc(func(_ context.Context, endpoint string, b bulk.Batch) (bulk.Result, error) {
		status := http.StatusOK
		if endpoint == "h:2" {
			status = http.StatusBadRequest
		}
		return bulk.Result{BatchID: b.ID, Seq: b.Seq, Entities: b.Len(), StatusCode: status, Body: []byte(`{"took":1}`)}, nil
	})
	in := newIngestor(t, Config{Endpoints: []string{"h:1", "h:2"}, BatchSize: 2}, sub)

	summary, err := in.Run(context.Background(), strings.NewReader(vikings))
	if err != nil {
		t.Fatalf("a rejected batch should not fail the run: %v", err)
	}
	if summary.Batches != 3 || summary.Rejected != 1 || summary.Delivered != 4 {
		t.Errorf("batches=%d rejected=%d delivered=%d, want 3, 1 and 4",
			summary.Batches, summary.Rejected, summary.Delivered)
	}
	if len(summary.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(summary.Results))
	}
	for _, res := range summary.Results {
		if res.Body != nil {
			t.Errorf("result %d keeps its response body", res.Seq)
		}
		if res.Endpoint == "h:2" && res.StatusCode != http.StatusBadRequest {
			t.Errorf("result %d status = %d", res.Seq, res.StatusCode)
		}
	}
}

func TestConfig_SubmitterConfig(t *testing.T) {
	cfg := Config{Index: "i", Type: "t", Timeout: time.Second, FailOnStatus: true}
	sc := cfg.SubmitterConfig()
	if sc.Index != "i" || sc.Type != "t" || sc.Timeout != time.Second || !sc.FailOnStatus {
		t.Errorf("submitter config = %+v", sc)
	}
}

func TestNew_CopiesEndpoints(t *testing.T) {
	endpoints := []string{"h:1", "h:2"}
	in := newIngestor(t, Config{Endpoints: endpoints}, &recordingSubmitter{})
	endpoints[0] = "changed:1"
	if got := in.Endpoints(); got[0] != "h:1" {
		t.Errorf("endpoints changed after construction: %v", got)
	}
}

func TestNew_RequiresSubmitter(t *testing.T) {
	if _, err := New(Config{Endpoints: []string{"h:1"}}, nil, nil); err == nil {
		t.Error("expected error without submitter")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"defaults with one endpoint", Config{Endpoints: []string{"localhost:9200"}}, ""},
		{"no endpoints", Config{}, "endpoints: is required"},
		{"endpoint without port", Config{Endpoints: []string{"localhost"}}, "endpoints[0]: must be a host:port address"},
		{"negative batch size", Config{Endpoints: []string{"h:1"}, BatchSize: -1}, "batch_size"},
		{"negative buffer", Config{Endpoints: []string{"h:1"}, Buffer: -1}, "buffer"},
		{"separator equals delimiter", Config{Endpoints: []string{"h:1"}, Delimiter: ";"}, "field_separator: must differ from delimiter"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.BatchSize != 5 || cfg.MaxFrameLength != 1000 || cfg.Delimiter != "\n" || cfg.FieldSeparator != ";" {
		t.Errorf("framing defaults = %+v", cfg)
	}
	if cfg.Index != "vikings" || cfg.Type != "vikings" || cfg.Timeout != 30*time.Second {
		t.Errorf("submission defaults = %+v", cfg)
	}
}
