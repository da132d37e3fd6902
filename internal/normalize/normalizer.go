// Package normalize maps source-specific raw postings into the canonical
// posting entity, rejecting listings that are unusable or out of scope.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/source"
)

// RejectionError reports why a raw posting was dropped. Rejections are
// per-posting and counted by the orchestrator, never fatal.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "posting rejected: " + e.Reason
}

// AsRejection returns the rejection inside err, if any.
func AsRejection(err error) (*RejectionError, bool) {
	var rejection *RejectionError
	ok := errors.As(err, &rejection)
	return rejection, ok
}

// RejectFunc is a pluggable noise predicate. It returns a reason and true when
// the posting should be dropped.
type RejectFunc func(raw source.RawPosting) (string, bool)

// seniorKeywords flags roles that are clearly not entry-level. The list is the
// default predicate only; callers can install their own RejectFunc.
var seniorKeywords = []string{
	"senior", "staff", "principal", "lead ", "head of", "director", "vp ", "chief",
}

// RejectSeniorRoles is the default noise predicate.
func RejectSeniorRoles(raw source.RawPosting) (string, bool) {
	title := strings.ToLower(raw.Title)
	for _, kw := range seniorKeywords {
		if strings.Contains(title, kw) {
			return fmt.Sprintf("seniority keyword %q", strings.TrimSpace(kw)), true
		}
	}
	return "", false
}

// postedAtLayouts are tried in order when parsing source-provided dates.
var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-07:00",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// Normalizer converts raw postings to canonical ones.
type Normalizer struct {
	reject RejectFunc
	logger *zap.Logger
	now    func() time.Time
}

func New(reject RejectFunc, logger *zap.Logger) *Normalizer {
	if reject == nil {
		reject = RejectSeniorRoles
	}
	return &Normalizer{reject: reject, logger: logger, now: time.Now}
}

// Normalize maps a raw posting into a canonical one. The identity hash is
// deterministic: the same logical posting from the same source normalizes to
// the same hash on every run, which is what makes upserts idempotent.
func (n *Normalizer) Normalize(raw source.RawPosting, src job.Source) (*job.Posting, error) {
	title := strings.TrimSpace(raw.Title)
	company := strings.TrimSpace(raw.Company)
	url := strings.TrimSpace(raw.URL)

	if title == "" {
		return nil, &RejectionError{Reason: "missing title"}
	}
	if company == "" {
		return nil, &RejectionError{Reason: "missing company"}
	}
	if url == "" {
		return nil, &RejectionError{Reason: "missing url"}
	}

	location := ResolveLocation(raw.Location)
	if location.Raw == "" && !location.Remote {
		return nil, &RejectionError{Reason: "missing location"}
	}

	if reason, drop := n.reject(raw); drop {
		return nil, &RejectionError{Reason: reason}
	}

	now := n.now().UTC()

	posting := &job.Posting{
		IdentityHash: job.Hash(src, title, company, location.Raw, url),
		Title:        title,
		Company:      company,
		Location:     location,
		Description:  strings.TrimSpace(raw.Description),
		URL:          url,
		Source:       src,
		PostedAt:     parsePostedAt(raw.PostedAt),
		FirstSeenAt:  now,
		LastSeenAt:   now,
		Status:       job.StatusActive,
	}

	return posting, nil
}

func parsePostedAt(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range postedAtLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
