package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/profile"
)

// Weights configure the heuristic fallback scorer. They should sum to roughly
// 1.0 so scores stay comparable with the primary scorer's [0,1] range.
type Weights struct {
	Role      float64 `mapstructure:"role"`
	City      float64 `mapstructure:"city"`
	Seniority float64 `mapstructure:"seniority"`
	Language  float64 `mapstructure:"language"`
}

// DefaultWeights are the shipped heuristic weights.
func DefaultWeights() Weights {
	return Weights{Role: 0.4, City: 0.25, Seniority: 0.2, Language: 0.15}
}

// HeuristicScorer is the deterministic fallback. It never fails: any candidate
// set yields scores, just with lower-confidence reasons than the AI path.
type HeuristicScorer struct {
	weights Weights
}

func NewHeuristicScorer(weights Weights) *HeuristicScorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &HeuristicScorer{weights: weights}
}

// ScoreBatch implements ai.Scorer. The returned error is always nil.
func (h *HeuristicScorer) ScoreBatch(_ context.Context, postings []*job.Posting, prof *profile.Profile) ([]ai.Score, error) {
	scores := make([]ai.Score, 0, len(postings))
	for _, p := range postings {
		score, reason := h.score(p, prof)
		scores = append(scores, ai.Score{
			IdentityHash: p.IdentityHash,
			Score:        score,
			Reason:       reason,
		})
	}
	return scores, nil
}

func (h *HeuristicScorer) score(p *job.Posting, prof *profile.Profile) (float64, string) {
	var (
		score   float64
		signals []string
	)

	haystack := strings.ToLower(p.Title + " " + p.Description)

	if prof.RoleFamily != "" && containsAllWords(haystack, prof.RoleFamily) {
		score += h.weights.Role
		signals = append(signals, fmt.Sprintf("%s role", prof.RoleFamily))
	}

	switch {
	case cityMatch(p.Location, prof.Cities):
		score += h.weights.City
		signals = append(signals, p.Location.City)
	case countryMatch(p.Location, prof.Countries):
		// Country-level match counts half: right market, not the target city.
		score += h.weights.City / 2
		signals = append(signals, p.Location.Country)
	case p.Location.Remote && prof.RemoteOK:
		score += h.weights.City
		signals = append(signals, "remote")
	}

	if prof.Seniority != "" && strings.Contains(haystack, strings.ToLower(prof.Seniority)) {
		score += h.weights.Seniority
		signals = append(signals, prof.Seniority+" level")
	}

	for _, lang := range prof.Languages {
		if lang != "" && strings.Contains(haystack, strings.ToLower(lang)) {
			score += h.weights.Language
			signals = append(signals, lang)
			break
		}
	}

	if score > 1 {
		score = 1
	}

	reason := "keyword match: " + strings.Join(signals, ", ")
	if len(signals) == 0 {
		reason = "no strong signals"
	}

	return score, reason
}

// containsAllWords reports whether every word of the phrase appears in the
// text, so "data analyst" matches "Junior Analyst, Data Platform".
func containsAllWords(text, phrase string) bool {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) == 0 {
		return false
	}
	for _, word := range words {
		if !strings.Contains(text, word) {
			return false
		}
	}
	return true
}

func cityMatch(loc job.Location, cities []string) bool {
	if loc.City == "" {
		return false
	}
	for _, city := range cities {
		if strings.EqualFold(loc.City, strings.TrimSpace(city)) {
			return true
		}
	}
	return false
}

func countryMatch(loc job.Location, countries []string) bool {
	if loc.Country == "" {
		return false
	}
	for _, country := range countries {
		if strings.EqualFold(loc.Country, strings.TrimSpace(country)) {
			return true
		}
	}
	return false
}
