package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/job"

	"go.uber.org/zap"
)

func testPosting(hash, title string) *job.Posting {
	return &job.Posting{
		IdentityHash: hash,
		Title:        title,
		Company:      "Acme",
		Location:     job.Location{City: "Berlin", Country: "Germany", Raw: "Berlin, Germany"},
		URL:          "https://example.com/jobs/" + hash,
		Source:       job.SourceGreenhouse,
		FirstSeenAt:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		LastSeenAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:       job.StatusActive,
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	memory := NewMemory()
	gateway := NewGateway(memory, 0, zap.NewNop())

	p := testPosting("h1", "Backend Engineer")

	first := gateway.Upsert(context.Background(), []*job.Posting{p})
	if first.Inserted != 1 || first.Updated != 0 {
		t.Fatalf("expected 1 insert, got %+v", first)
	}

	rescrape := testPosting("h1", "Backend Engineer (m/f/d)")
	rescrape.LastSeenAt = p.LastSeenAt.Add(24 * time.Hour)

	second := gateway.Upsert(context.Background(), []*job.Posting{rescrape})
	if second.Inserted != 0 || second.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", second)
	}

	if memory.Len() != 1 {
		t.Fatalf("expected exactly one stored row, got %d", memory.Len())
	}

	stored := memory.Get("h1")
	if stored.Title != "Backend Engineer (m/f/d)" {
		t.Fatalf("expected the title to be refreshed, got %q", stored.Title)
	}
	if !stored.FirstSeenAt.Equal(p.FirstSeenAt) {
		t.Fatalf("expected first_seen_at to be preserved, got %v", stored.FirstSeenAt)
	}
	if !stored.LastSeenAt.Equal(rescrape.LastSeenAt) {
		t.Fatalf("expected last_seen_at to advance, got %v", stored.LastSeenAt)
	}
}

func TestUpsertIsOrderIndependent(t *testing.T) {
	a := testPosting("h1", "Backend Engineer")
	b := testPosting("h2", "Data Analyst")
	c := testPosting("h3", "QA Engineer")

	forward := NewMemory()
	NewGateway(forward, 0, zap.NewNop()).Upsert(context.Background(), []*job.Posting{a, b, c})

	reversed := NewMemory()
	NewGateway(reversed, 0, zap.NewNop()).Upsert(context.Background(), []*job.Posting{c, b, a})

	if forward.Len() != reversed.Len() {
		t.Fatalf("expected identical store sizes, got %d and %d", forward.Len(), reversed.Len())
	}

	for _, hash := range []string{"h1", "h2", "h3"} {
		f, r := forward.Get(hash), reversed.Get(hash)
		if f == nil || r == nil {
			t.Fatalf("posting %s missing from one of the stores", hash)
		}
		if f.Title != r.Title || !f.LastSeenAt.Equal(r.LastSeenAt) {
			t.Fatalf("posting %s differs between ingestion orders", hash)
		}
	}
}

func TestUpsertPreservesPostedAtWhenRescrapeOmitsIt(t *testing.T) {
	memory := NewMemory()
	gateway := NewGateway(memory, 0, zap.NewNop())

	p := testPosting("h1", "Backend Engineer")
	p.PostedAt = time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	gateway.Upsert(context.Background(), []*job.Posting{p})

	rescrape := testPosting("h1", "Backend Engineer")
	gateway.Upsert(context.Background(), []*job.Posting{rescrape})

	if memory.Get("h1").PostedAt.IsZero() {
		t.Fatalf("expected posted_at to survive a rescrape without a date")
	}
}

// failingStore fails every Nth batch to exercise per-batch isolation.
type failingStore struct {
	inner   *Memory
	calls   int
	failOn  int
	lastErr error
}

func (f *failingStore) UpsertBatch(ctx context.Context, postings []*job.Posting) (UpsertStats, error) {
	f.calls++
	if f.calls == f.failOn {
		f.lastErr = errors.New("connection reset")
		return UpsertStats{}, f.lastErr
	}
	return f.inner.UpsertBatch(ctx, postings)
}

func (f *failingStore) Query(ctx context.Context, filter Filter) ([]*job.Posting, error) {
	return f.inner.Query(ctx, filter)
}

func TestUpsertIsolatesBatchFailures(t *testing.T) {
	failing := &failingStore{inner: NewMemory(), failOn: 2}
	gateway := NewGateway(failing, 2, zap.NewNop())

	postings := []*job.Posting{
		testPosting("h1", "A"),
		testPosting("h2", "B"),
		testPosting("h3", "C"),
		testPosting("h4", "D"),
		testPosting("h5", "E"),
	}

	stats := gateway.Upsert(context.Background(), postings)

	if stats.Inserted != 3 {
		t.Fatalf("expected 3 inserts from surviving batches, got %d", stats.Inserted)
	}
	if stats.Failed != 2 {
		t.Fatalf("expected 2 failed postings, got %d", stats.Failed)
	}
	if stats.FailedBatches != 1 {
		t.Fatalf("expected 1 failed batch, got %d", stats.FailedBatches)
	}
	if failing.inner.Len() != 3 {
		t.Fatalf("expected the surviving batches to stay committed, got %d rows", failing.inner.Len())
	}
}

func TestQueryFilters(t *testing.T) {
	memory := NewMemory()
	gateway := NewGateway(memory, 0, zap.NewNop())

	active := testPosting("h1", "Backend Engineer")
	stale := testPosting("h2", "Data Analyst")
	stale.Status = job.StatusStale
	old := testPosting("h3", "QA Engineer")
	old.LastSeenAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	gateway.Upsert(context.Background(), []*job.Posting{active, stale, old})

	got, err := gateway.Query(context.Background(), Filter{
		Statuses:  []job.Status{job.StatusActive},
		SeenSince: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0].IdentityHash != "h1" {
		t.Fatalf("expected only the active recent posting, got %d results", len(got))
	}
}
