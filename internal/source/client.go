package source

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultUserAgent = "jobsift/1.0 (+https://github.com/jobsift/jobsift)"

// Client is the HTTP client shared by all adapters. It sets a stable
// User-Agent and bounds every request with a timeout; adapters pass their own
// context for per-run cancellation.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	logger     *zap.Logger
}

func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  defaultUserAgent,
		logger:     logger,
	}
}

// Do executes the request with the shared headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")

	c.logger.Debug("fetching", zap.String("url", req.URL.String()))

	return c.HTTPClient.Do(req)
}

// GetJSON fetches the URL and decodes the JSON body into target. Non-200
// statuses are returned as errors so the orchestrator can classify the source
// as unavailable.
func (c *Client) GetJSON(req *http.Request, target any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
