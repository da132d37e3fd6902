// Package source implements adapters retrieving raw postings from external
// job boards, ATS platforms and company career pages.
package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/job"
)

// RawPosting is the transient, source-specific shape of a scraped listing. It
// is owned by the adapter that produced it and discarded after normalization.
type RawPosting struct {
	ExternalID  string `json:"external_id,omitempty"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	PostedAt    string `json:"posted_at,omitempty"`
}

// Selectors configures the CSS selectors used by the careers-page adapter.
// Item selects one listing; the remaining selectors are evaluated relative to
// it.
type Selectors struct {
	Item     string `mapstructure:"item"`
	Title    string `mapstructure:"title"`
	Location string `mapstructure:"location"`
	Link     string `mapstructure:"link"`
}

// Config describes one configured source.
type Config struct {
	// Name distinguishes multiple configured instances of the same type.
	Name string `mapstructure:"name"`
	// Type selects the adapter: greenhouse, lever or careers.
	Type string `mapstructure:"type"`
	// Company is the display name recorded on normalized postings.
	Company string `mapstructure:"company"`
	// Board is the board token for ATS-backed sources (greenhouse, lever).
	Board string `mapstructure:"board"`
	// URL is the page address for the careers adapter.
	URL       string     `mapstructure:"url"`
	Selectors *Selectors `mapstructure:"selectors"`
}

// Adapter fetches raw postings from one external origin. A returned error
// means the source was unavailable this run; an empty slice with a nil error
// is a valid outcome. Adapters are single-attempt: retry policy lives in the
// ingestion orchestrator.
type Adapter interface {
	Name() string
	Source() job.Source
	Fetch(ctx context.Context) ([]RawPosting, error)
}

// New builds the adapter for the given config.
func New(cfg Config, client *Client, logger *zap.Logger) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "greenhouse":
		return NewGreenhouse(cfg, client, logger)
	case "lever":
		return NewLever(cfg, client, logger)
	case "careers":
		return NewCareers(cfg, client, logger)
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
}

// Registry builds adapters for all configured sources.
func Registry(configs []Config, client *Client, logger *zap.Logger) ([]Adapter, error) {
	adapters := make([]Adapter, 0, len(configs))
	for _, cfg := range configs {
		adapter, err := New(cfg, client, logger)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", cfg.Name, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}
