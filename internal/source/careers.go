package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/job"
)

// Careers scrapes a company careers page using configured CSS selectors.
// Malformed or unexpected markup yields zero postings, never an error: the
// html parser is lenient and unmatched selectors simply select nothing.
type Careers struct {
	cfg       Config
	client    *Client
	logger    *zap.Logger
	selectors Selectors
}

var defaultSelectors = Selectors{
	Item:     ".job, .opening, li.posting",
	Title:    ".job-title, .posting-title, h3, h4",
	Location: ".location, .posting-categories .location",
	Link:     "a",
}

func NewCareers(cfg Config, client *Client, logger *zap.Logger) (*Careers, error) {
	if cfg.URL == "" {
		return nil, errors.New("careers source requires a page url")
	}

	selectors := defaultSelectors
	if cfg.Selectors != nil {
		if cfg.Selectors.Item != "" {
			selectors.Item = cfg.Selectors.Item
		}
		if cfg.Selectors.Title != "" {
			selectors.Title = cfg.Selectors.Title
		}
		if cfg.Selectors.Location != "" {
			selectors.Location = cfg.Selectors.Location
		}
		if cfg.Selectors.Link != "" {
			selectors.Link = cfg.Selectors.Link
		}
	}

	return &Careers{cfg: cfg, client: client, logger: logger, selectors: selectors}, nil
}

func (c *Careers) Name() string {
	if c.cfg.Name != "" {
		return c.cfg.Name
	}
	return "careers/" + c.cfg.Company
}

func (c *Careers) Source() job.Source { return job.SourceCareers }

func (c *Careers) Fetch(ctx context.Context) ([]RawPosting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		// Treated as an empty page rather than a source failure: the body was
		// delivered, it just was not parseable markup.
		c.logger.Warn("careers page is not parseable html",
			zap.String("source", c.Name()),
			zap.Error(err),
		)
		return nil, nil
	}

	base := resp.Request.URL

	var raw []RawPosting
	doc.Find(c.selectors.Item).Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(c.selectors.Title).First().Text())
		if title == "" {
			return
		}

		location := strings.TrimSpace(s.Find(c.selectors.Location).First().Text())

		link, _ := s.Find(c.selectors.Link).First().Attr("href")
		link = resolveURL(base, strings.TrimSpace(link))

		raw = append(raw, RawPosting{
			Title:    title,
			Company:  c.cfg.Company,
			Location: location,
			URL:      link,
		})
	})

	c.logger.Debug("scraped careers page",
		zap.String("source", c.Name()),
		zap.Int("count", len(raw)),
	)

	return raw, nil
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
