// Package upstream fetches raw feed documents from the NWS alerts API and
// the NewsAPI top-headlines endpoint.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/catastroguard/internal/config"
	"github.com/couchcryptid/catastroguard/internal/domain"
	"github.com/couchcryptid/catastroguard/internal/observability"
	"golang.org/x/time/rate"
)

const (
	defaultNWSBaseURL  = "https://api.weather.gov"
	defaultNewsBaseURL = "https://newsapi.org/v2"
)

// ErrNoAPIKey is returned by FetchNews when no NewsAPI key is configured.
var ErrNoAPIKey = errors.New("news api key not configured")

// Client retrieves raw upstream documents. Requests to every feed share one
// rate limiter.
type Client struct {
	httpClient  *http.Client
	nwsBaseURL  string
	newsBaseURL string
	area        string
	country     string
	apiKey      string
	userAgent   string
	maxBody     int64
	limiter     *rate.Limiter
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates an upstream client from the collector configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.UpstreamTimeout},
		nwsBaseURL:  defaultNWSBaseURL,
		newsBaseURL: defaultNewsBaseURL,
		area:        cfg.NWSArea,
		country:     cfg.NewsCountry,
		apiKey:      cfg.NewsAPIKey,
		userAgent:   cfg.NWSUserAgent,
		maxBody:     domain.MaxDocumentBytes,
		limiter:     rate.NewLimiter(rate.Limit(cfg.UpstreamRate), 1),
		metrics:     metrics,
		logger:      logger,
	}
}

// HasNewsKey reports whether the news feed can be fetched.
func (c *Client) HasNewsKey() bool {
	return c.apiKey != ""
}

// FetchAlerts returns the active-alerts document for the configured area.
func (c *Client) FetchAlerts(ctx context.Context) ([]byte, error) {
	params := url.Values{"area": {c.area}}
	return c.fetch(ctx, domain.FeedAlerts, c.nwsBaseURL+"/alerts/active?"+params.Encode())
}

// FetchNews returns the top-headlines document for the configured country.
func (c *Client) FetchNews(ctx context.Context) ([]byte, error) {
	if !c.HasNewsKey() {
		return nil, ErrNoAPIKey
	}
	params := url.Values{
		"country": {c.country},
		"apiKey":  {c.apiKey},
	}
	return c.fetch(ctx, domain.FeedNews, c.newsBaseURL+"/top-headlines?"+params.Encode())
}

// Fetch dispatches to the fetcher of feed.
func (c *Client) Fetch(ctx context.Context, feed domain.Feed) ([]byte, error) {
	switch feed {
	case domain.FeedAlerts:
		return c.FetchAlerts(ctx)
	case domain.FeedNews:
		return c.FetchNews(ctx)
	default:
		return nil, fmt.Errorf("fetch: unknown feed %q", feed)
	}
}

func (c *Client) fetch(ctx context.Context, feed domain.Feed, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit: %w", feed, err)
	}

	start := time.Now()
	body, err := c.doRequest(ctx, feed, fullURL)
	c.metrics.UpstreamFetchDuration.WithLabelValues(string(feed)).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.UpstreamFetches.WithLabelValues(string(feed), outcome).Inc()
	return body, err
}

func (c *Client) doRequest(ctx context.Context, feed domain.Feed, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s API error: status %d: %s", feed, resp.StatusCode, body)
	}

	// One byte past the limit tells a full document from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", feed, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%s response exceeds %d bytes: %w", feed, c.maxBody, domain.ErrDocumentTooLarge)
	}
	c.logger.Debug("upstream document fetched", "feed", feed, "bytes", len(body))
	return body, nil
}
