// Package ai defines the scoring contract between the matching engine and AI
// providers.
package ai

import (
	"context"
	"errors"

	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/profile"
)

// Quota and timeout are reported distinctly from other failures so the engine
// can route to the fallback scorer deterministically instead of guessing from
// error text.
var (
	ErrTimeout       = errors.New("scorer timed out")
	ErrQuotaExceeded = errors.New("scorer quota exceeded")
)

// Score is one scored posting with a short human-readable reason.
type Score struct {
	IdentityHash string  `json:"identity_hash"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason"`
}

// Scorer scores a candidate set against a profile. Implementations must honor
// the context deadline.
type Scorer interface {
	ScoreBatch(ctx context.Context, postings []*job.Posting, prof *profile.Profile) ([]Score, error)
}
