// Package store provides the dedup-safe persistence gateway for canonical
// postings. Everything writes through batched upserts keyed by identity hash,
// which makes ingestion idempotent and order-independent.
package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/job"
)

const defaultBatchSize = 50

// UpsertStats summarizes one upsert pass.
type UpsertStats struct {
	Inserted      int `json:"inserted"`
	Updated       int `json:"updated"`
	Failed        int `json:"failed"`
	FailedBatches int `json:"failed_batches,omitempty"`
}

func (s *UpsertStats) add(other UpsertStats) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Failed += other.Failed
	s.FailedBatches += other.FailedBatches
}

// Filter restricts Query results. Zero values mean no restriction.
type Filter struct {
	Statuses  []job.Status
	Sources   []job.Source
	SeenSince time.Time
	Limit     int
}

// JobStore is the narrow interface to the canonical posting store. The upsert
// conflict key is the identity hash; on conflict, mutable fields are updated
// and first_seen_at is preserved.
type JobStore interface {
	UpsertBatch(ctx context.Context, postings []*job.Posting) (UpsertStats, error)
	Query(ctx context.Context, filter Filter) ([]*job.Posting, error)
}

// Gateway wraps a JobStore with bounded batching and per-batch failure
// isolation. A failed batch is counted and skipped; previously written batches
// stay committed. Partial ingestion on transient failure beats losing the run.
type Gateway struct {
	store     JobStore
	batchSize int
	logger    *zap.Logger
}

func NewGateway(store JobStore, batchSize int, logger *zap.Logger) *Gateway {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Gateway{store: store, batchSize: batchSize, logger: logger}
}

// Upsert writes postings in bounded batches. It never returns an error for
// batch failures; the stats carry the degradation.
func (g *Gateway) Upsert(ctx context.Context, postings []*job.Posting) UpsertStats {
	var stats UpsertStats

	for start := 0; start < len(postings); start += g.batchSize {
		end := min(start+g.batchSize, len(postings))
		batch := postings[start:end]

		batchStats, err := g.store.UpsertBatch(ctx, batch)
		if err != nil {
			g.logger.Warn("posting batch write failed",
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			stats.add(UpsertStats{Failed: len(batch), FailedBatches: 1})
			continue
		}

		stats.add(batchStats)
	}

	return stats
}

// Query passes through to the underlying store.
func (g *Gateway) Query(ctx context.Context, filter Filter) ([]*job.Posting, error) {
	return g.store.Query(ctx, filter)
}
