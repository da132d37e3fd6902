package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/ai"
	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/profile"
	"github.com/jobsift/jobsift/internal/util"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	// maxDescriptionRunes bounds the per-posting payload so a large candidate
	// set still fits the model context window.
	maxDescriptionRunes = 1200
)

// Scorer is the AI-assisted primary scorer. It sends the whole candidate set
// plus the profile in one structured prompt and parses the scored response.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Scorer{generator: generator, logger: logger, maxLogLen: maxLogLength}
}

// ScoreBatch implements ai.Scorer. Quota and deadline failures are mapped to
// the ai sentinel errors; anything else is returned as-is for the engine to
// log at higher severity.
func (s *Scorer) ScoreBatch(ctx context.Context, postings []*job.Posting, prof *profile.Profile) ([]ai.Score, error) {
	if prof == nil {
		return nil, errors.New("profile is required")
	}
	if len(postings) == 0 {
		return nil, nil
	}

	prompt, err := buildPrompt(postings, prof)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini scoring request",
		zap.String("subscriber_id", prof.SubscriberID),
		zap.Int("candidates", len(postings)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, classifyError(err)
	}

	s.logger.Debug("gemini scoring response",
		zap.String("subscriber_id", prof.SubscriberID),
		zap.String("response_preview", util.TruncateForLog(raw, s.maxLogLen)),
	)

	scores, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	// Keep only scores referring to postings we actually sent.
	known := make(map[string]bool, len(postings))
	for _, p := range postings {
		known[p.IdentityHash] = true
	}

	kept := scores[:0]
	for _, score := range scores {
		if !known[score.IdentityHash] {
			s.logger.Debug("dropping score for unknown posting",
				zap.String("identity_hash", score.IdentityHash),
			)
			continue
		}
		kept = append(kept, score)
	}

	return kept, nil
}

func buildPrompt(postings []*job.Posting, prof *profile.Profile) (string, error) {
	profilePayload := map[string]any{
		"target_cities":    prof.Cities,
		"target_countries": prof.Countries,
		"remote_ok":        prof.RemoteOK,
		"role_family":      prof.RoleFamily,
		"seniority":        prof.Seniority,
		"languages":        prof.Languages,
		"work_environment": prof.WorkEnv,
	}

	profileJSON, err := json.MarshalIndent(profilePayload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	candidates := make([]map[string]any, 0, len(postings))
	for _, p := range postings {
		candidates = append(candidates, map[string]any{
			"id":          p.IdentityHash,
			"title":       p.Title,
			"company":     p.Company,
			"location":    p.Location.String(),
			"posted_at":   formatPostedAt(p.PostedAt),
			"description": util.TruncateForLog(p.Description, maxDescriptionRunes),
		})
	}

	candidatesJSON, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{PROFILE_JSON}}", string(profileJSON))
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATES_JSON}}", string(candidatesJSON))
	return prompt, nil
}

func formatPostedAt(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format("2006-01-02")
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrTimeout, err)
	}

	if isQuotaError(err) {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}

	return err
}

func parseResponse(raw string) ([]ai.Score, error) {
	cleaned := extractJSON(raw)

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	scores := make([]ai.Score, 0, len(items))
	for _, item := range items {
		score := coerceFloat(item["score"])
		if math.IsNaN(score) {
			score = 0
		}
		score = math.Max(0, math.Min(1, score))

		scores = append(scores, ai.Score{
			IdentityHash: coerceString(item["id"]),
			Score:        score,
			Reason:       coerceString(item["reason"]),
		})
	}

	return scores, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
