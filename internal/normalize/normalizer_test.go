package normalize

import (
	"testing"

	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/source"

	"go.uber.org/zap"
)

func TestNormalizeKeepsValidAndRejectsBroken(t *testing.T) {
	normalizer := New(nil, zap.NewNop())

	raws := []source.RawPosting{
		{Title: "Backend Engineer", Company: "Acme", Location: "Berlin, Germany", URL: "https://example.com/jobs/1"},
		{Title: "Data Analyst", Company: "Acme", Location: "Remote", URL: "https://example.com/jobs/2"},
		{Title: "", Company: "Acme", Location: "Berlin", URL: "https://example.com/jobs/3"},
	}

	var kept int
	var rejected int
	for _, raw := range raws {
		_, err := normalizer.Normalize(raw, job.SourceGreenhouse)
		if err != nil {
			if _, ok := AsRejection(err); !ok {
				t.Fatalf("expected a rejection error, got %v", err)
			}
			rejected++
			continue
		}
		kept++
	}

	if kept != 2 {
		t.Fatalf("expected 2 normalized postings, got %d", kept)
	}
	if rejected != 1 {
		t.Fatalf("expected 1 rejection, got %d", rejected)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	normalizer := New(nil, zap.NewNop())

	cases := []struct {
		name   string
		raw    source.RawPosting
		reason string
	}{
		{
			name:   "missing title",
			raw:    source.RawPosting{Company: "Acme", Location: "Berlin", URL: "https://example.com/1"},
			reason: "missing title",
		},
		{
			name:   "missing company",
			raw:    source.RawPosting{Title: "Engineer", Location: "Berlin", URL: "https://example.com/1"},
			reason: "missing company",
		},
		{
			name:   "missing url",
			raw:    source.RawPosting{Title: "Engineer", Company: "Acme", Location: "Berlin"},
			reason: "missing url",
		},
		{
			name:   "missing location",
			raw:    source.RawPosting{Title: "Engineer", Company: "Acme", URL: "https://example.com/1"},
			reason: "missing location",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalizer.Normalize(tc.raw, job.SourceCareers)
			rejection, ok := AsRejection(err)
			if !ok {
				t.Fatalf("expected a rejection, got %v", err)
			}
			if rejection.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, rejection.Reason)
			}
		})
	}
}

func TestNormalizeAcceptsRemoteWithoutLocationText(t *testing.T) {
	normalizer := New(nil, zap.NewNop())

	posting, err := normalizer.Normalize(source.RawPosting{
		Title:    "Junior Developer",
		Company:  "Acme",
		Location: "Remote",
		URL:      "https://example.com/jobs/9",
	}, job.SourceLever)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !posting.Location.Remote {
		t.Fatalf("expected remote location")
	}
	if posting.Status != job.StatusActive {
		t.Fatalf("expected active status, got %s", posting.Status)
	}
}

func TestNormalizeRejectsSeniorRoles(t *testing.T) {
	normalizer := New(nil, zap.NewNop())

	_, err := normalizer.Normalize(source.RawPosting{
		Title:    "Senior Platform Engineer",
		Company:  "Acme",
		Location: "Berlin",
		URL:      "https://example.com/jobs/4",
	}, job.SourceGreenhouse)

	rejection, ok := AsRejection(err)
	if !ok {
		t.Fatalf("expected a rejection, got %v", err)
	}
	if rejection.Reason != `seniority keyword "senior"` {
		t.Fatalf("unexpected reason: %q", rejection.Reason)
	}
}

func TestNormalizeHashIsDeterministic(t *testing.T) {
	normalizer := New(nil, zap.NewNop())

	raw := source.RawPosting{
		Title:    "Backend Engineer",
		Company:  "Acme",
		Location: "Berlin, Germany",
		URL:      "https://example.com/jobs/1",
	}

	first, err := normalizer.Normalize(raw, job.SourceGreenhouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A re-scrape with changed mutable fields must keep the identity.
	raw.Description = "now with a description"
	second, err := normalizer.Normalize(raw, job.SourceGreenhouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.IdentityHash != second.IdentityHash {
		t.Fatalf("expected stable identity hash, got %s and %s", first.IdentityHash, second.IdentityHash)
	}
}

func TestNormalizeParsesPostedAt(t *testing.T) {
	normalizer := New(nil, zap.NewNop())

	posting, err := normalizer.Normalize(source.RawPosting{
		Title:    "Backend Engineer",
		Company:  "Acme",
		Location: "Berlin",
		URL:      "https://example.com/jobs/1",
		PostedAt: "2025-06-01",
	}, job.SourceGreenhouse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if posting.PostedAt.IsZero() {
		t.Fatalf("expected posted_at to be parsed")
	}
	if posting.PostedAt.Year() != 2025 || posting.PostedAt.Month() != 6 {
		t.Fatalf("unexpected posted_at: %v", posting.PostedAt)
	}
}
