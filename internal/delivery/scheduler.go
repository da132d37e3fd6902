// Package delivery defines the scheduling contract honored by the external
// delivery/email component. The core never sends mail; it only exposes the
// per-tier cadence and match volume the delivery side is expected to request.
package delivery

import (
	"time"

	"github.com/jobsift/jobsift/internal/profile"
)

// Cadence describes how often matches are produced for a subscriber and how
// many postings each batch may contain.
type Cadence struct {
	Interval      time.Duration `json:"interval"`
	MatchesPerRun int           `json:"matches_per_run"`
}

// Scheduler maps a subscription tier to its cadence.
type Scheduler interface {
	Plan(tier profile.Tier) Cadence
}

// TierPlan is the default scheduler: free subscribers get one weekly batch of
// five, premium subscribers three batches a week of ten.
type TierPlan struct {
	Free    Cadence
	Premium Cadence
}

func NewTierPlan() *TierPlan {
	return &TierPlan{
		Free:    Cadence{Interval: 7 * 24 * time.Hour, MatchesPerRun: 5},
		Premium: Cadence{Interval: 56 * time.Hour, MatchesPerRun: 10},
	}
}

func (p *TierPlan) Plan(tier profile.Tier) Cadence {
	if tier == profile.TierPremium {
		return p.Premium
	}
	return p.Free
}

// Due reports whether a subscriber on the tier is due for a new batch given
// their last delivery time.
func (p *TierPlan) Due(tier profile.Tier, last time.Time, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= p.Plan(tier).Interval
}
