package delivery

import (
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/profile"
)

func TestPlanByTier(t *testing.T) {
	plan := NewTierPlan()

	free := plan.Plan(profile.TierFree)
	if free.Interval != 7*24*time.Hour || free.MatchesPerRun != 5 {
		t.Fatalf("unexpected free cadence: %+v", free)
	}

	premium := plan.Plan(profile.TierPremium)
	if premium.Interval >= free.Interval {
		t.Fatalf("expected premium to deliver more often than free")
	}
	if premium.MatchesPerRun != 10 {
		t.Fatalf("unexpected premium match volume: %d", premium.MatchesPerRun)
	}
}

func TestPlanUnknownTierFallsBackToFree(t *testing.T) {
	plan := NewTierPlan()

	if got := plan.Plan(profile.Tier("enterprise")); got != plan.Free {
		t.Fatalf("expected unknown tiers to get the free cadence, got %+v", got)
	}
}

func TestDue(t *testing.T) {
	plan := NewTierPlan()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if !plan.Due(profile.TierFree, time.Time{}, now) {
		t.Fatalf("expected a subscriber without deliveries to be due")
	}
	if plan.Due(profile.TierFree, now.Add(-24*time.Hour), now) {
		t.Fatalf("expected a free subscriber delivered yesterday to not be due")
	}
	if !plan.Due(profile.TierFree, now.Add(-8*24*time.Hour), now) {
		t.Fatalf("expected a free subscriber delivered last week to be due")
	}
	if !plan.Due(profile.TierPremium, now.Add(-3*24*time.Hour), now) {
		t.Fatalf("expected a premium subscriber delivered three days ago to be due")
	}
}
