// Package job defines the canonical, deduplicated posting entity shared by
// ingestion and matching.
package job

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Source identifies the external origin of a posting.
type Source string

const (
	SourceGreenhouse Source = "greenhouse"
	SourceLever      Source = "lever"
	SourceCareers    Source = "careers"
)

// Status is the lifecycle state of a posting in the store.
type Status string

const (
	StatusActive  Status = "active"
	StatusStale   Status = "stale"
	StatusRemoved Status = "removed"
)

// Location is a normalized city/country pair. When the free-text location could
// not be resolved against the lookup table, Raw preserves the original string
// and City/Country stay empty.
type Location struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	Raw     string `json:"raw,omitempty"`
	Remote  bool   `json:"remote,omitempty"`
}

// Resolved reports whether the location maps to a canonical city/country pair.
func (l Location) Resolved() bool {
	return l.City != "" && l.Country != ""
}

func (l Location) String() string {
	switch {
	case l.Remote && !l.Resolved():
		return "remote"
	case l.Remote:
		return fmt.Sprintf("%s, %s (remote)", l.City, l.Country)
	case l.Resolved():
		return fmt.Sprintf("%s, %s", l.City, l.Country)
	default:
		return l.Raw
	}
}

// Posting is the canonical job listing record. IdentityHash is the dedup key:
// re-ingesting the same logical listing updates mutable fields but never
// creates a second row.
type Posting struct {
	IdentityHash string    `json:"identity_hash"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	Location     Location  `json:"location"`
	Description  string    `json:"description,omitempty"`
	URL          string    `json:"url"`
	Source       Source    `json:"source"`
	PostedAt     time.Time `json:"posted_at,omitempty"`
	FirstSeenAt  time.Time `json:"first_seen_at,omitempty"`
	LastSeenAt   time.Time `json:"last_seen_at,omitempty"`
	Status       Status    `json:"status"`
}

// Hash computes the identity hash over the normalized identity tuple. The same
// logical posting scraped on different days must hash identically, so only
// fields that are stable across re-scrapes participate.
func Hash(source Source, title, company, location, url string) string {
	parts := []string{string(source), title, company, location, url}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", sum)
}

// SeenWithin reports whether the posting was sighted inside the given horizon.
// PostedAt is preferred; LastSeenAt is the fallback for sources that do not
// publish a date.
func (p *Posting) SeenWithin(horizon time.Duration, now time.Time) bool {
	ts := p.PostedAt
	if ts.IsZero() {
		ts = p.LastSeenAt
	}
	if ts.IsZero() {
		return false
	}
	return now.Sub(ts) <= horizon
}

// Recency returns the timestamp used for tie-breaking in match results.
func (p *Posting) Recency() time.Time {
	if !p.PostedAt.IsZero() {
		return p.PostedAt
	}
	return p.LastSeenAt
}

// Postings is a collection of canonical postings.
type Postings struct {
	Items []*Posting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) FindByHash(hash string) *Posting {
	for _, posting := range p.Items {
		if posting.IdentityHash == hash {
			return posting
		}
	}
	return nil
}

// DedupByHash removes postings sharing an identity hash, keeping the first
// occurrence. Returns the removed hashes.
func (p *Postings) DedupByHash() []string {
	seen := make(map[string]bool, len(p.Items))
	kept := make([]*Posting, 0, len(p.Items))
	var removed []string

	for _, posting := range p.Items {
		if seen[posting.IdentityHash] {
			removed = append(removed, posting.IdentityHash)
			continue
		}
		seen[posting.IdentityHash] = true
		kept = append(kept, posting)
	}

	p.Items = kept
	return removed
}
