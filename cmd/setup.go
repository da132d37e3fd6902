package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/ai/gemini"
	"github.com/jobsift/jobsift/internal/cache"
	"github.com/jobsift/jobsift/internal/ingest"
	"github.com/jobsift/jobsift/internal/match"
	"github.com/jobsift/jobsift/internal/metrics"
	"github.com/jobsift/jobsift/internal/normalize"
	"github.com/jobsift/jobsift/internal/ratelimit"
	"github.com/jobsift/jobsift/internal/secrets"
	"github.com/jobsift/jobsift/internal/source"
	"github.com/jobsift/jobsift/internal/store"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 30 * time.Second

// newJobStore builds the configured job store. The returned closer is a no-op
// for the in-memory driver.
func newJobStore(ctx context.Context, cfg *StoreConfig) (store.JobStore, func(), error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == "memory" {
		return store.NewMemory(), func() {}, nil
	}

	if cfg.Driver != "postgres" {
		return nil, nil, fmt.Errorf("unknown store driver: %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, nil, errors.New("store.dsn is required for the postgres driver (or set JOBSIFT_DATABASE_URL)")
	}

	pg, err := store.NewPostgres(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// newRawCache builds the Redis cache when configured. A nil cache is a valid
// no-op for the orchestrator.
func newRawCache(cfg *RedisConfig, logger *zap.Logger) *cache.Cache {
	if cfg == nil || cfg.URL == "" {
		return nil
	}

	ttl := time.Duration(cfg.TTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	c, err := cache.New(cfg.URL, ttl)
	if err != nil {
		logger.Warn("raw-result cache disabled", zap.Error(err))
		return nil
	}
	return c
}

func newOrchestrator(config *Config, gateway *store.Gateway, rawCache *cache.Cache, m *metrics.Metrics, logger *zap.Logger) (*ingest.Orchestrator, error) {
	if len(config.Sources) == 0 {
		return nil, errors.New("at least one source must be configured under 'sources'")
	}

	client := source.NewClient(defaultFetchTimeout, logger)
	adapters, err := source.Registry(config.Sources, client, logger)
	if err != nil {
		return nil, err
	}

	normalizer := normalize.New(normalize.RejectSeniorRoles, logger)

	var opts ingest.Options
	if c := config.Ingest; c != nil {
		opts = ingest.Options{
			Workers: c.Workers,
			Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
			Retries: c.Retries,
			Backoff: time.Duration(c.BackoffSeconds) * time.Second,
		}
	}

	return ingest.New(adapters, normalizer, gateway, rawCache, m, opts, logger), nil
}

// newEngine builds the matching engine. The primary scorer is wired only when
// AI matching is enabled and its key loads; otherwise the engine runs on the
// heuristic fallback alone.
func newEngine(ctx context.Context, config *Config, limiter *ratelimit.Limiter, logger *zap.Logger) (*match.Engine, error) {
	weights := match.DefaultWeights()
	var opts match.Options

	if c := config.Matching; c != nil {
		opts = match.Options{
			TopN:          c.TopN,
			Freshness:     time.Duration(c.FreshnessDays) * 24 * time.Hour,
			ScorerTimeout: time.Duration(c.ScorerTimeout) * time.Second,
			ScorerLimit:   c.ScorerLimit,
			ScorerWindow:  time.Duration(c.ScorerWindow) * time.Second,
		}
		if len(c.FallbackWeights) > 0 {
			if err := mapstructure.Decode(c.FallbackWeights, &weights); err != nil {
				return nil, fmt.Errorf("decoding fallback weights: %w", err)
			}
		}
	}

	var primary ai.Scorer
	if config.AI != nil && config.AI.Enabled {
		scorer, err := newGeminiScorer(ctx, config.AI, logger)
		if err != nil {
			return nil, fmt.Errorf("building gemini scorer: %w", err)
		}
		primary = scorer
	}

	fallback := match.NewHeuristicScorer(weights)

	return match.NewEngine(primary, fallback, limiter, opts, logger), nil
}

func newGeminiScorer(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Scorer, error) {
	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai matching is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewScorer(generator, cfg.Gemini.MaxLogLength, genLogger), nil
}
