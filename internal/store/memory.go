package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jobsift/jobsift/internal/job"
)

// Memory is an in-memory JobStore used for tests and dry runs. It mirrors the
// Postgres conflict semantics: insert on new hash, otherwise update mutable
// fields and preserve first_seen_at.
type Memory struct {
	mu       sync.Mutex
	postings map[string]*job.Posting
}

func NewMemory() *Memory {
	return &Memory{postings: make(map[string]*job.Posting)}
}

func (m *Memory) UpsertBatch(_ context.Context, postings []*job.Posting) (UpsertStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats UpsertStats
	for _, p := range postings {
		existing, ok := m.postings[p.IdentityHash]
		if !ok {
			clone := *p
			m.postings[p.IdentityHash] = &clone
			stats.Inserted++
			continue
		}

		existing.Title = p.Title
		existing.Company = p.Company
		existing.Location = p.Location
		existing.Description = p.Description
		existing.URL = p.URL
		existing.Status = p.Status
		existing.LastSeenAt = p.LastSeenAt
		if !p.PostedAt.IsZero() {
			existing.PostedAt = p.PostedAt
		}
		stats.Updated++
	}

	return stats, nil
}

func (m *Memory) Query(_ context.Context, filter Filter) ([]*job.Posting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*job.Posting
	for _, p := range m.postings {
		if !matchesFilter(p, filter) {
			continue
		}
		clone := *p
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeenAt.After(result[j].LastSeenAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Len returns the number of stored postings.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.postings)
}

// Get returns the stored posting for the hash, or nil.
func (m *Memory) Get(hash string) *job.Posting {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.postings[hash]
	if !ok {
		return nil
	}
	clone := *p
	return &clone
}

func matchesFilter(p *job.Posting, filter Filter) bool {
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, p.Status) {
		return false
	}
	if len(filter.Sources) > 0 && !containsSource(filter.Sources, p.Source) {
		return false
	}
	if !filter.SeenSince.IsZero() && p.LastSeenAt.Before(filter.SeenSince) {
		return false
	}
	return true
}

func containsStatus(statuses []job.Status, s job.Status) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

func containsSource(sources []job.Source, s job.Source) bool {
	for _, source := range sources {
		if source == s {
			return true
		}
	}
	return false
}
