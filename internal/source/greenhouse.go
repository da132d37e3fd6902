package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/job"
)

const greenhouseAPIURL = "https://boards-api.greenhouse.io/v1/boards"

// Greenhouse fetches postings from the public Greenhouse job board API.
type Greenhouse struct {
	cfg    Config
	client *Client
	logger *zap.Logger
	APIURL string
}

type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

type greenhouseJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	UpdatedAt   string `json:"updated_at"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

func NewGreenhouse(cfg Config, client *Client, logger *zap.Logger) (*Greenhouse, error) {
	if cfg.Board == "" {
		return nil, fmt.Errorf("greenhouse source requires a board token")
	}
	return &Greenhouse{cfg: cfg, client: client, logger: logger, APIURL: greenhouseAPIURL}, nil
}

func (g *Greenhouse) Name() string {
	if g.cfg.Name != "" {
		return g.cfg.Name
	}
	return "greenhouse/" + g.cfg.Board
}

func (g *Greenhouse) Source() job.Source { return job.SourceGreenhouse }

func (g *Greenhouse) Fetch(ctx context.Context) ([]RawPosting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", g.APIURL, g.cfg.Board)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var response greenhouseResponse
	if err := g.client.GetJSON(req, &response); err != nil {
		return nil, fmt.Errorf("greenhouse board %q: %w", g.cfg.Board, err)
	}

	company := g.cfg.Company
	if company == "" {
		company = g.cfg.Board
	}

	raw := make([]RawPosting, 0, len(response.Jobs))
	for _, j := range response.Jobs {
		raw = append(raw, RawPosting{
			ExternalID:  strconv.FormatInt(j.ID, 10),
			Title:       j.Title,
			Company:     company,
			Location:    j.Location.Name,
			Description: j.Content,
			URL:         j.AbsoluteURL,
			PostedAt:    j.UpdatedAt,
		})
	}

	return raw, nil
}
