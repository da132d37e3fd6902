// Package match implements the matching engine: candidate filtering, primary
// (AI-assisted) scoring with a deterministic heuristic fallback, ranking and
// truncation.
package match

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/profile"
	"github.com/jobsift/jobsift/internal/ratelimit"
)

// ScorerPath records which scoring strategy produced a result.
type ScorerPath string

const (
	PathPrimary  ScorerPath = "primary"
	PathFallback ScorerPath = "fallback"
)

// Match is one ranked posting.
type Match struct {
	IdentityHash string  `json:"identity_hash"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason"`
}

// Result is the ranked, deduplicated output of one matching invocation.
// Matches are sorted by score descending, ties broken by more recent postings.
type Result struct {
	Matches []Match    `json:"matches"`
	Path    ScorerPath `json:"path"`
}

func (r *Result) Len() int { return len(r.Matches) }

// Options tune the engine. Zero values fall back to the defaults below.
type Options struct {
	// TopN bounds the result size.
	TopN int
	// Freshness is the recency horizon granting a ranking boost. It is a
	// boost, not a hard filter, so matching degrades gracefully when few
	// fresh postings exist.
	Freshness time.Duration
	// FreshnessBoost is added to the score of postings inside the horizon.
	FreshnessBoost float64
	// ScorerTimeout bounds each primary scorer call.
	ScorerTimeout time.Duration
	// ScorerKey/ScorerLimit/ScorerWindow gate outbound primary scorer calls
	// through the rate limiter. A zero limit disables the gate.
	ScorerKey    string
	ScorerLimit  int
	ScorerWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 5
	}
	if o.Freshness <= 0 {
		o.Freshness = 14 * 24 * time.Hour
	}
	if o.FreshnessBoost <= 0 {
		o.FreshnessBoost = 0.05
	}
	if o.ScorerTimeout <= 0 {
		o.ScorerTimeout = 20 * time.Second
	}
	if o.ScorerKey == "" {
		o.ScorerKey = "scorer:primary"
	}
	return o
}

// Engine scores candidate postings against a profile. The primary scorer is
// optional; the fallback always exists and never fails.
type Engine struct {
	primary  ai.Scorer
	fallback *HeuristicScorer
	limiter  *ratelimit.Limiter
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(primary ai.Scorer, fallback *HeuristicScorer, limiter *ratelimit.Limiter, opts Options, logger *zap.Logger) *Engine {
	if fallback == nil {
		fallback = NewHeuristicScorer(DefaultWeights())
	}
	return &Engine{
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Match produces the ranked subset of candidates for the profile. An empty
// candidate set after filtering is a valid empty result, not an error; the
// only hard failure is a nil profile, which is a caller contract violation.
func (e *Engine) Match(ctx context.Context, candidates []*job.Posting, prof *profile.Profile) (*Result, error) {
	if prof == nil {
		return nil, errors.New("profile is required")
	}

	start := e.now()

	filtered := e.filterCandidates(candidates, prof)
	if len(filtered) == 0 {
		e.logger.Info("no candidates after filtering",
			zap.String("subscriber_id", prof.SubscriberID),
			zap.Int("initial", len(candidates)),
		)
		return &Result{Path: PathFallback}, nil
	}

	scores, path := e.scoreCandidates(ctx, filtered, prof)
	result := e.rank(filtered, scores, path)

	e.logger.Info("matching completed",
		zap.String("subscriber_id", prof.SubscriberID),
		zap.String("scorer_path", string(path)),
		zap.Int("candidates", len(filtered)),
		zap.Int("matches", result.Len()),
		zap.Duration("latency", e.now().Sub(start)),
	)

	return result, nil
}

// filterCandidates keeps postings whose location intersects the profile's
// target cities/countries, or that are remote when the profile allows it.
func (e *Engine) filterCandidates(candidates []*job.Posting, prof *profile.Profile) []*job.Posting {
	filtered := make([]*job.Posting, 0, len(candidates))
	for _, p := range candidates {
		if p == nil || p.Status == job.StatusRemoved {
			continue
		}
		if e.locationCompatible(p, prof) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func (e *Engine) locationCompatible(p *job.Posting, prof *profile.Profile) bool {
	if p.Location.Remote && prof.RemoteOK {
		return true
	}
	if cityMatch(p.Location, prof.Cities) || countryMatch(p.Location, prof.Countries) {
		return true
	}
	// A profile with no location preferences accepts everything.
	return len(prof.Cities) == 0 && len(prof.Countries) == 0
}

func (e *Engine) scoreCandidates(ctx context.Context, candidates []*job.Posting, prof *profile.Profile) ([]ai.Score, ScorerPath) {
	if e.primary == nil {
		return e.fallbackScores(ctx, candidates, prof)
	}

	if e.opts.ScorerLimit > 0 && e.limiter != nil {
		decision := e.limiter.Check(e.opts.ScorerKey, e.opts.ScorerLimit, e.opts.ScorerWindow)
		if !decision.Allowed {
			e.logger.Info("primary scorer rate-limited, using fallback",
				zap.String("subscriber_id", prof.SubscriberID),
				zap.Time("reset_time", decision.ResetTime),
			)
			return e.fallbackScores(ctx, candidates, prof)
		}
	}

	scoreCtx, cancel := context.WithTimeout(ctx, e.opts.ScorerTimeout)
	defer cancel()

	scores, err := e.primary.ScoreBatch(scoreCtx, candidates, prof)
	if err == nil && len(scores) > 0 {
		return scores, PathPrimary
	}

	switch {
	case err == nil:
		e.logger.Warn("primary scorer returned no scores, using fallback",
			zap.String("subscriber_id", prof.SubscriberID),
		)
	case errors.Is(err, ai.ErrTimeout), errors.Is(err, ai.ErrQuotaExceeded):
		e.logger.Info("primary scorer degraded, using fallback",
			zap.String("subscriber_id", prof.SubscriberID),
			zap.Error(err),
		)
	default:
		// Unexpected failure: still recovered by the fallback, but flagged
		// for operator attention.
		e.logger.Warn("primary scorer failed, using fallback",
			zap.String("subscriber_id", prof.SubscriberID),
			zap.Error(err),
		)
	}

	return e.fallbackScores(ctx, candidates, prof)
}

func (e *Engine) fallbackScores(ctx context.Context, candidates []*job.Posting, prof *profile.Profile) ([]ai.Score, ScorerPath) {
	scores, _ := e.fallback.ScoreBatch(ctx, candidates, prof)
	return scores, PathFallback
}

// rank assembles the final result: freshness boost, dedup by identity hash,
// sort by score descending with recency tie-break, truncate to top-N.
func (e *Engine) rank(candidates []*job.Posting, scores []ai.Score, path ScorerPath) *Result {
	byHash := make(map[string]*job.Posting, len(candidates))
	for _, p := range candidates {
		byHash[p.IdentityHash] = p
	}

	now := e.now()
	seen := make(map[string]bool, len(scores))
	matches := make([]Match, 0, len(scores))

	for _, score := range scores {
		posting, ok := byHash[score.IdentityHash]
		if !ok || seen[score.IdentityHash] {
			continue
		}
		seen[score.IdentityHash] = true

		value := score.Score
		if value < 0 {
			value = 0
		}
		if posting.SeenWithin(e.opts.Freshness, now) {
			value += e.opts.FreshnessBoost
		}
		if value > 1 {
			value = 1
		}

		matches = append(matches, Match{
			IdentityHash: score.IdentityHash,
			Score:        value,
			Reason:       score.Reason,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		pi, pj := byHash[matches[i].IdentityHash], byHash[matches[j].IdentityHash]
		return pi.Recency().After(pj.Recency())
	})

	if len(matches) > e.opts.TopN {
		matches = matches[:e.opts.TopN]
	}

	return &Result{Matches: matches, Path: path}
}
