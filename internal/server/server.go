// Package server wraps the ingestion and matching core with a small HTTP
// layer. It is optional: the core stays usable as a library, and the handlers
// only translate between HTTP and the library-level contracts. The one
// user-visible error rule: "nothing matched" is a 200 with an empty result,
// "could not complete" is a 5xx.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/delivery"
	"github.com/jobsift/jobsift/internal/ingest"
	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/match"
	"github.com/jobsift/jobsift/internal/metrics"
	"github.com/jobsift/jobsift/internal/profile"
	"github.com/jobsift/jobsift/internal/ratelimit"
	"github.com/jobsift/jobsift/internal/store"
)

// Limits configure the inbound rate limiting for the two triggering
// endpoints. They are independent from the outbound scorer gate.
type Limits struct {
	IngestLimit  int
	IngestWindow time.Duration
	MatchLimit   int
	MatchWindow  time.Duration
}

// Server exposes ingestOnce and performMatching over HTTP.
type Server struct {
	orchestrator *ingest.Orchestrator
	engine       *match.Engine
	profiles     profile.Store
	gateway      *store.Gateway
	limiter      *ratelimit.Limiter
	plan         delivery.Scheduler
	metrics      *metrics.Metrics
	limits       Limits
	logger       *zap.Logger

	// candidateHorizon bounds how far back the match endpoint looks for
	// candidates.
	candidateHorizon time.Duration
}

func New(
	orchestrator *ingest.Orchestrator,
	engine *match.Engine,
	profiles profile.Store,
	gateway *store.Gateway,
	limiter *ratelimit.Limiter,
	plan delivery.Scheduler,
	m *metrics.Metrics,
	limits Limits,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator:     orchestrator,
		engine:           engine,
		profiles:         profiles,
		gateway:          gateway,
		limiter:          limiter,
		plan:             plan,
		metrics:          m,
		limits:           limits,
		logger:           logger,
		candidateHorizon: 30 * 24 * time.Hour,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(rateLimit(s.limiter, "ingest", s.limits.IngestLimit, s.limits.IngestWindow, s.logger)).
			Post("/ingest/run", s.handleIngest)
		r.With(rateLimit(s.limiter, "match", s.limits.MatchLimit, s.limits.MatchWindow, s.logger)).
			Post("/match/{subscriberID}", s.handleMatch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orchestrator.Run(r.Context())
	if err != nil {
		s.logger.Error("ingestion run failed", zap.Error(err))
		status := http.StatusInternalServerError
		if summary == nil {
			// No summary means a caller contract problem (no sources), not a
			// degraded run.
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]any{
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	subscriberID := chi.URLParam(r, "subscriberID")

	prof, err := s.profiles.Get(r.Context(), subscriberID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown subscriber"})
			return
		}
		s.logger.Error("loading profile failed",
			zap.String("subscriber_id", subscriberID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "profile store unavailable"})
		return
	}

	candidates, err := s.queryCandidates(r.Context())
	if err != nil {
		s.logger.Error("loading candidates failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "job store unavailable"})
		return
	}

	start := time.Now()
	result, err := s.engine.Match(r.Context(), candidates, prof)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if s.metrics != nil {
		s.metrics.ScorerRequests.WithLabelValues(string(result.Path)).Inc()
		s.metrics.MatchDuration.Observe(time.Since(start).Seconds())
	}

	// Tier caps the batch size even when the engine is configured wider.
	if limit := s.plan.Plan(prof.Tier).MatchesPerRun; len(result.Matches) > limit {
		result.Matches = result.Matches[:limit]
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) queryCandidates(ctx context.Context) ([]*job.Posting, error) {
	return s.gateway.Query(ctx, store.Filter{
		Statuses:  []job.Status{job.StatusActive},
		SeenSince: time.Now().Add(-s.candidateHorizon),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
