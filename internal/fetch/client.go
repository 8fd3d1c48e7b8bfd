package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin wrapper around a single *http.Client so that every
// request in a run shares one connection pool. Upstream timing endpoints
// drop connections that look like scripted traffic, so requests carry a
// browser-like User-Agent and referrer.
type Client struct {
	http      *http.Client
	userAgent string
	referrer  string
	logger    *slog.Logger
}

// Config holds fetch client settings
type Config struct {
	Timeout   time.Duration `toml:"timeout"`
	UserAgent string        `toml:"user_agent"`
	Referrer  string        `toml:"referrer"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" +
			" (KHTML, like Gecko) Chrome/66.0.3359.181 Safari/537.36",
		Referrer: "https://www.spartan.com/en/race/find-race",
	}
}

// NewClient creates a fetch client with connection reuse enabled
func NewClient(config Config, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: config.Timeout,
		},
		userAgent: config.UserAgent,
		referrer:  config.Referrer,
		logger:    logger,
	}
}

// Get performs a GET request and returns the body and status code.
// The error is non-nil only for transport-level failures; callers decide
// what a non-2xx status means for them.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, int, error) {
	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.referrer)

	c.logger.Debug("fetching", "url", rawURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading body from %s: %w", rawURL, err)
	}

	return body, resp.StatusCode, nil
}

// GetOK is Get but treats any non-2xx status as an error. Used by the
// reconciliation and results paths where a bad status is always fatal for
// that request.
func (c *Client) GetOK(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	body, status, err := c.Get(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", rawURL, status)
	}
	return body, nil
}
