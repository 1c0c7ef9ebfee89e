// Package client provides the GitHub REST transport for the repository
// browser: listing pages, per-repository star counts, typed errors,
// Link-header pagination and optional Redis-backed caching and quota tracking.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/cache"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/Sternrassler/repolist-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// Endpoint labels used for metrics and logs.
const (
	endpointList   = "list"
	endpointDetail = "detail"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repolist_requests_total",
		Help: "Total GitHub requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repolist_request_duration_seconds",
		Help:    "GitHub request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repolist_errors_total",
		Help: "Total GitHub request errors by kind",
	}, []string{"kind"})
)

// Client fetches repository listing pages and star counts.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
	now         func() time.Time
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the REST API. Defaults to DefaultBaseURL.
	BaseURL string

	// User-Agent header (REQUIRED by GitHub)
	UserAgent string

	// Redis enables the response cache and the shared quota tracker.
	// Optional.
	Redis *redis.Client

	// Timeout bounds a single request.
	Timeout time.Duration
}

// DefaultConfig returns a default configuration for the public API.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute url (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "github-client").Logger()

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(base.String(), "/"),
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// FetchPage fetches one listing page. The zero cursor requests the first
// page; any other cursor requests exactly the URL it wraps.
func (c *Client) FetchPage(ctx context.Context, cursor model.Cursor) (*model.Page, error) {
	target := cursor.URL()
	if target == nil {
		var err error
		target, err = url.Parse(c.baseURL + "/repositories")
		if err != nil {
			return nil, c.fail(endpointList, &APIError{Kind: KindMalformedRequest, Err: err})
		}
	}

	resp, err := c.get(ctx, endpointList, target)
	if err != nil {
		return nil, err
	}

	repos, err := decodeRepositories(resp.body)
	if err != nil {
		return nil, c.fail(endpointList, &APIError{Kind: KindMalformedBody, Detail: err.Error()})
	}

	page := &model.Page{
		Repositories: repos,
		Next:         ParseNextCursor(resp.header),
	}

	c.logger.Debug().
		Str("url", target.String()).
		Int("repositories", len(repos)).
		Bool("has_next", page.HasNext()).
		Msg("Fetched listing page")

	return page, nil
}

// FetchDetail fetches the star count of owner/name.
func (c *Client) FetchDetail(ctx context.Context, ownerLogin, repoName string) (int, error) {
	if ownerLogin == "" || repoName == "" {
		return 0, c.fail(endpointDetail, &APIError{
			Kind: KindMalformedRequest,
			Err:  fmt.Errorf("owner and repository name are required (got %q/%q)", ownerLogin, repoName),
		})
	}

	target, err := url.Parse(c.baseURL + "/repos/" + url.PathEscape(ownerLogin) + "/" + url.PathEscape(repoName))
	if err != nil {
		return 0, c.fail(endpointDetail, &APIError{Kind: KindMalformedRequest, Err: err})
	}

	resp, err := c.get(ctx, endpointDetail, target)
	if err != nil {
		return 0, err
	}

	stars, err := decodeStarCount(resp.body)
	if err != nil {
		return 0, c.fail(endpointDetail, &APIError{Kind: KindMalformedBody, Detail: err.Error()})
	}

	return stars, nil
}

// response is a successful (2xx or revalidated) answer.
type response struct {
	status int
	header http.Header
	body   []byte
}

// get performs a GET with quota gating, caching and error classification.
func (c *Client) get(ctx context.Context, endpoint string, target *url.URL) (*response, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check cache
	var cached *cache.Entry
	cacheKey := cache.KeyForURL(target)
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			requestsTotal.WithLabelValues(endpoint, "cached").Inc()
			c.logger.Debug().Str("key", cacheKey.String()).Msg("Serving fresh cache entry")
			return &response{status: entry.StatusCode, header: entry.Headers, body: entry.Data}, nil
		case err == nil:
			cached = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Check the shared quota before going to the network
	if c.rateLimiter != nil {
		allowed, wait, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			requestsTotal.WithLabelValues(endpoint, "blocked").Inc()
			return nil, c.fail(endpoint, &APIError{Kind: KindRateLimited, RetryAfter: &wait})
		}
	}

	// Step 3: Build request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, c.fail(endpoint, &APIError{Kind: KindMalformedRequest, Err: err})
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if cached != nil && cached.CanRevalidate() {
		cache.AddConditionalHeaders(req, cached)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", target.String()).
		Bool("conditional", cached != nil).
		Msg("Executing GitHub request")

	// Step 4: Execute
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if IsCancelled(err) || IsCancelled(ctx.Err()) {
			requestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
			return nil, fmt.Errorf("%s request: %w", endpoint, err)
		}
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, c.fail(endpoint, &APIError{Kind: KindTransport, Detail: err.Error(), Err: err})
	}
	if resp == nil {
		return nil, c.fail(endpoint, &APIError{Kind: KindInvalidResponse})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: Record quota
	if c.rateLimiter != nil {
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	// Step 6: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cached != nil {
		cache.NotModifiedResponses.Inc()
		refreshed := cache.Revalidated(cached, resp.Header, c.now())
		if err := c.cache.Set(ctx, cacheKey, refreshed); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		return &response{status: refreshed.StatusCode, header: refreshed.Headers, body: refreshed.Data}, nil
	}

	// Step 7: Classify failures
	if resp.StatusCode == http.StatusForbidden && ratelimit.IsExhausted(resp.Header) {
		apiErr := &APIError{Kind: KindRateLimited, StatusCode: resp.StatusCode}
		if wait, ok := ratelimit.RetryAfter(resp.Header, c.now()); ok {
			apiErr.RetryAfter = &wait
		}
		return nil, c.fail(endpoint, apiErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(endpoint, &APIError{Kind: KindHTTPStatus, StatusCode: resp.StatusCode})
	}

	// Step 8: Read body and update cache
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if IsCancelled(err) {
			return nil, fmt.Errorf("%s response: %w", endpoint, err)
		}
		return nil, c.fail(endpoint, &APIError{Kind: KindTransport, Detail: err.Error(), Err: err})
	}

	if c.cache != nil && cache.IsCacheable(resp.StatusCode, resp.Header) {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, body, c.now())
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// fail records and logs a classified error.
func (c *Client) fail(endpoint string, apiErr *APIError) error {
	errorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()

	event := c.logger.Warn()
	if apiErr.Kind == KindMalformedRequest {
		event = c.logger.Error()
	}
	event.
		Str("endpoint", endpoint).
		Str("kind", string(apiErr.Kind)).
		Int("status", apiErr.StatusCode).
		Err(apiErr).
		Msg("GitHub request failed")

	return apiErr
}

// Close releases idle connections. Redis is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
