// Package ingest runs all configured source adapters, normalizes their raw
// postings and writes them through the dedup gateway, producing a per-source
// summary. All resilience policy (timeouts, retries, backoff) lives here:
// adapters stay dumb and single-attempt.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/cache"
	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/metrics"
	"github.com/jobsift/jobsift/internal/normalize"
	"github.com/jobsift/jobsift/internal/source"
	"github.com/jobsift/jobsift/internal/store"
	"github.com/jobsift/jobsift/internal/util"
)

// SourceReport summarizes one source's contribution to a run.
type SourceReport struct {
	Fetched  int    `json:"fetched"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Rejected int    `json:"rejected"`
	Failed   int    `json:"failed"`
	Cached   bool   `json:"cached,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Summary is the outcome of one ingestion run.
type Summary struct {
	RunID    string                  `json:"run_id"`
	Started  time.Time               `json:"started"`
	Duration time.Duration           `json:"duration"`
	Sources  map[string]SourceReport `json:"sources"`
}

// TotalFetched counts raw postings across all sources.
func (s *Summary) TotalFetched() int {
	total := 0
	for _, report := range s.Sources {
		total += report.Fetched
	}
	return total
}

func (s *Summary) errored() int {
	n := 0
	for _, report := range s.Sources {
		if report.Err != "" {
			n++
		}
	}
	return n
}

// Options tune the orchestrator's resilience policy.
type Options struct {
	// Workers bounds adapter concurrency. Adapters are I/O-bound and
	// independent, so a small pool is enough.
	Workers int
	// Timeout bounds each individual fetch attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transport failure.
	// Empty results are success and are never retried.
	Retries int
	// Backoff is the base delay between attempts, multiplied by the attempt
	// number.
	Backoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 2 * time.Second
	}
	return o
}

// Orchestrator coordinates one ingestion run.
type Orchestrator struct {
	adapters   []source.Adapter
	normalizer *normalize.Normalizer
	gateway    *store.Gateway
	cache      *cache.Cache
	metrics    *metrics.Metrics
	opts       Options
	logger     *zap.Logger
}

func New(
	adapters []source.Adapter,
	normalizer *normalize.Normalizer,
	gateway *store.Gateway,
	cache *cache.Cache,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		adapters:   adapters,
		normalizer: normalizer,
		gateway:    gateway,
		cache:      cache,
		metrics:    m,
		opts:       opts.withDefaults(),
		logger:     logger,
	}
}

// Run executes one ingestion pass over all adapters with bounded concurrency.
// Partial success is a successful run with a degraded summary; the run as a
// whole fails only when no adapters are configured, or when every source came
// back empty and at least one of them errored.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if len(o.adapters) == 0 {
		return nil, errors.New("no sources configured")
	}

	summary := &Summary{
		RunID:   uuid.New().String(),
		Started: time.Now().UTC(),
		Sources: make(map[string]SourceReport, len(o.adapters)),
	}

	o.logger.Info("starting ingestion run",
		zap.String("run_id", summary.RunID),
		zap.Int("sources", len(o.adapters)),
		zap.Int("workers", o.opts.Workers),
	)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.opts.Workers)
	)

	for _, adapter := range o.adapters {
		wg.Add(1)
		sem <- struct{}{}

		go func(a source.Adapter) {
			defer wg.Done()
			defer func() { <-sem }()

			report := o.runSource(ctx, a)

			mu.Lock()
			summary.Sources[a.Name()] = report
			mu.Unlock()
		}(adapter)
	}

	wg.Wait()
	summary.Duration = time.Since(summary.Started)

	o.logger.Info("ingestion run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("fetched", summary.TotalFetched()),
		zap.Int("errored_sources", summary.errored()),
		zap.Duration("duration", summary.Duration),
	)

	if summary.TotalFetched() == 0 && summary.errored() > 0 {
		return summary, fmt.Errorf("ingestion run %s produced no postings and %d source(s) failed", summary.RunID, summary.errored())
	}

	return summary, nil
}

// runSource fetches, normalizes and persists one source. Failures never
// propagate: they degrade this source's report and leave siblings untouched.
func (o *Orchestrator) runSource(ctx context.Context, adapter source.Adapter) SourceReport {
	var report SourceReport

	raw, cached, err := o.fetch(ctx, adapter)
	if err != nil {
		o.logger.Warn("source unavailable",
			zap.String("source", adapter.Name()),
			zap.Error(err),
		)
		if o.metrics != nil {
			o.metrics.SourceFailures.WithLabelValues(adapter.Name()).Inc()
		}
		report.Err = err.Error()
		return report
	}

	report.Fetched = len(raw)
	report.Cached = cached
	if o.metrics != nil {
		o.metrics.PostingsFetched.WithLabelValues(adapter.Name()).Add(float64(len(raw)))
	}

	if len(raw) == 0 {
		o.logger.Info("source returned no postings", zap.String("source", adapter.Name()))
		return report
	}

	postings := make([]*job.Posting, 0, len(raw))
	for _, r := range raw {
		posting, err := o.normalizer.Normalize(r, adapter.Source())
		if err != nil {
			if rejection, ok := normalize.AsRejection(err); ok {
				report.Rejected++
				o.logger.Debug("posting rejected",
					zap.String("source", adapter.Name()),
					zap.String("title", r.Title),
					zap.String("reason", rejection.Reason),
				)
				continue
			}
			report.Rejected++
			o.logger.Warn("normalization failed",
				zap.String("source", adapter.Name()),
				zap.Error(err),
			)
			continue
		}
		postings = append(postings, posting)
	}

	if o.metrics != nil && report.Rejected > 0 {
		o.metrics.PostingsRejected.WithLabelValues(adapter.Name()).Add(float64(report.Rejected))
	}

	stats := o.gateway.Upsert(ctx, postings)
	report.Inserted = stats.Inserted
	report.Updated = stats.Updated
	report.Failed = stats.Failed

	if o.metrics != nil {
		o.metrics.PostingsUpserted.WithLabelValues(adapter.Name(), "inserted").Add(float64(stats.Inserted))
		o.metrics.PostingsUpserted.WithLabelValues(adapter.Name(), "updated").Add(float64(stats.Updated))
		o.metrics.PostingsUpserted.WithLabelValues(adapter.Name(), "failed").Add(float64(stats.Failed))
	}

	o.logger.Info("source ingested",
		zap.String("source", adapter.Name()),
		zap.Int("fetched", report.Fetched),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("rejected", report.Rejected),
		zap.Int("failed", report.Failed),
	)

	return report
}

// fetch tries the cache first, then the adapter with per-attempt timeout and
// retries on transport failure only.
func (o *Orchestrator) fetch(ctx context.Context, adapter source.Adapter) (raw []source.RawPosting, cached bool, err error) {
	if hit, ok := o.cache.Get(ctx, adapter.Name()); ok {
		o.logger.Debug("serving source from cache",
			zap.String("source", adapter.Name()),
			zap.Int("count", len(hit)),
		)
		return hit, true, nil
	}

	var lastErr error
	for attempt := 0; attempt <= o.opts.Retries; attempt++ {
		if attempt > 0 {
			o.logger.Debug("retrying source fetch",
				zap.String("source", adapter.Name()),
				zap.Int("attempt", attempt),
			)
			if err := util.WaitFor(ctx, time.Duration(attempt)*o.opts.Backoff); err != nil {
				return nil, false, err
			}
		}

		fetchCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
		raw, lastErr = adapter.Fetch(fetchCtx)
		cancel()

		if lastErr == nil {
			if len(raw) > 0 {
				if err := o.cache.Set(ctx, adapter.Name(), raw); err != nil {
					o.logger.Debug("cache write failed",
						zap.String("source", adapter.Name()),
						zap.Error(err),
					)
				}
			}
			return raw, false, nil
		}
	}

	return nil, false, lastErr
}
