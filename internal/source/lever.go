package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/job"
)

const leverAPIURL = "https://api.lever.co/v0/postings"

// Lever fetches postings from the public Lever postings API.
type Lever struct {
	cfg    Config
	client *Client
	logger *zap.Logger
	APIURL string
}

type leverPosting struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	HostedURL        string `json:"hostedUrl"`
	DescriptionPlain string `json:"descriptionPlain"`
	CreatedAt        int64  `json:"createdAt"`
	Categories       struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	WorkplaceType string `json:"workplaceType"`
}

func NewLever(cfg Config, client *Client, logger *zap.Logger) (*Lever, error) {
	if cfg.Board == "" {
		return nil, fmt.Errorf("lever source requires a board token")
	}
	return &Lever{cfg: cfg, client: client, logger: logger, APIURL: leverAPIURL}, nil
}

func (l *Lever) Name() string {
	if l.cfg.Name != "" {
		return l.cfg.Name
	}
	return "lever/" + l.cfg.Board
}

func (l *Lever) Source() job.Source { return job.SourceLever }

func (l *Lever) Fetch(ctx context.Context) ([]RawPosting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", l.APIURL, l.cfg.Board)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var postings []leverPosting
	if err := l.client.GetJSON(req, &postings); err != nil {
		return nil, fmt.Errorf("lever board %q: %w", l.cfg.Board, err)
	}

	company := l.cfg.Company
	if company == "" {
		company = l.cfg.Board
	}

	raw := make([]RawPosting, 0, len(postings))
	for _, p := range postings {
		location := p.Categories.Location
		if location == "" && p.WorkplaceType == "remote" {
			location = "Remote"
		}

		posted := ""
		if p.CreatedAt > 0 {
			posted = time.UnixMilli(p.CreatedAt).UTC().Format(time.RFC3339)
		}

		raw = append(raw, RawPosting{
			ExternalID:  p.ID,
			Title:       p.Text,
			Company:     company,
			Location:    location,
			Description: p.DescriptionPlain,
			URL:         p.HostedURL,
			PostedAt:    posted,
		})
	}

	return raw, nil
}
