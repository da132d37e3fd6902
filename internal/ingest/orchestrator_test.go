package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/normalize"
	"github.com/jobsift/jobsift/internal/source"
	"github.com/jobsift/jobsift/internal/store"

	"go.uber.org/zap"
)

type stubAdapter struct {
	name     string
	postings []source.RawPosting
	err      error
	// failures is the number of leading Fetch calls that fail before the
	// adapter starts succeeding.
	failures int
	calls    int
}

func (s *stubAdapter) Name() string       { return s.name }
func (s *stubAdapter) Source() job.Source { return job.SourceGreenhouse }

func (s *stubAdapter) Fetch(_ context.Context) ([]source.RawPosting, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("transient failure")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.postings, nil
}

func validRaw(id string) source.RawPosting {
	return source.RawPosting{
		Title:    "Backend Engineer " + id,
		Company:  "Acme",
		Location: "Berlin, Germany",
		URL:      "https://example.com/jobs/" + id,
	}
}

func newTestOrchestrator(adapters []source.Adapter, opts Options) (*Orchestrator, *store.Memory) {
	memory := store.NewMemory()
	gateway := store.NewGateway(memory, 0, zap.NewNop())
	normalizer := normalize.New(nil, zap.NewNop())
	return New(adapters, normalizer, gateway, nil, nil, opts, zap.NewNop()), memory
}

func TestRunPartialSuccess(t *testing.T) {
	healthy := &stubAdapter{name: "acme", postings: []source.RawPosting{validRaw("1"), validRaw("2")}}
	broken := &stubAdapter{name: "globex", err: errors.New("boards api down")}

	orchestrator, memory := newTestOrchestrator([]source.Adapter{healthy, broken}, Options{Backoff: time.Millisecond})

	summary, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("expected a degraded run to succeed, got %v", err)
	}

	if summary.Sources["acme"].Inserted != 2 {
		t.Fatalf("expected 2 inserts from the healthy source, got %+v", summary.Sources["acme"])
	}
	if summary.Sources["globex"].Err == "" {
		t.Fatalf("expected the broken source to report an error")
	}
	if memory.Len() != 2 {
		t.Fatalf("expected 2 stored postings, got %d", memory.Len())
	}
}

func TestRunFailsWhenAllSourcesEmptyAndErrored(t *testing.T) {
	broken := &stubAdapter{name: "globex", err: errors.New("boards api down")}

	orchestrator, _ := newTestOrchestrator([]source.Adapter{broken}, Options{Backoff: time.Millisecond})

	summary, err := orchestrator.Run(context.Background())
	if err == nil {
		t.Fatalf("expected the run to fail when nothing was fetched and a source errored")
	}
	if summary == nil {
		t.Fatalf("expected a summary alongside the error")
	}
	if summary.Sources["globex"].Err == "" {
		t.Fatalf("expected the failing source to be reported")
	}
}

func TestRunRequiresAdapters(t *testing.T) {
	orchestrator, _ := newTestOrchestrator(nil, Options{})

	if _, err := orchestrator.Run(context.Background()); err == nil {
		t.Fatalf("expected an error for a run without sources")
	}
}

func TestRunRetriesTransportFailures(t *testing.T) {
	flaky := &stubAdapter{name: "acme", failures: 1, postings: []source.RawPosting{validRaw("1")}}

	orchestrator, _ := newTestOrchestrator([]source.Adapter{flaky}, Options{Retries: 2, Backoff: time.Millisecond})

	summary, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if flaky.calls != 2 {
		t.Fatalf("expected 2 fetch attempts, got %d", flaky.calls)
	}
	if summary.Sources["acme"].Fetched != 1 {
		t.Fatalf("expected the retried fetch to succeed, got %+v", summary.Sources["acme"])
	}
}

func TestRunDoesNotRetryEmptySuccess(t *testing.T) {
	empty := &stubAdapter{name: "acme"}

	orchestrator, _ := newTestOrchestrator([]source.Adapter{empty}, Options{Retries: 3, Backoff: time.Millisecond})

	summary, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("expected an empty run to succeed, got %v", err)
	}

	if empty.calls != 1 {
		t.Fatalf("expected a single fetch attempt for an empty success, got %d", empty.calls)
	}
	if summary.TotalFetched() != 0 {
		t.Fatalf("expected no fetched postings, got %d", summary.TotalFetched())
	}
}

func TestRunCountsRejections(t *testing.T) {
	mixed := &stubAdapter{name: "acme", postings: []source.RawPosting{
		validRaw("1"),
		{Title: "Senior Architect", Company: "Acme", Location: "Berlin", URL: "https://example.com/jobs/2"},
		{Company: "Acme", Location: "Berlin", URL: "https://example.com/jobs/3"},
	}}

	orchestrator, memory := newTestOrchestrator([]source.Adapter{mixed}, Options{Backoff: time.Millisecond})

	summary, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := summary.Sources["acme"]
	if report.Fetched != 3 {
		t.Fatalf("expected 3 fetched, got %d", report.Fetched)
	}
	if report.Rejected != 2 {
		t.Fatalf("expected 2 rejections, got %d", report.Rejected)
	}
	if memory.Len() != 1 {
		t.Fatalf("expected 1 stored posting, got %d", memory.Len())
	}
}
