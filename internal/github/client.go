package github

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
)

const (
	defaultBaseURL = "https://api.github.com"
	perPage        = "100"
	// rateLimitBuffer is the number of requests kept in reserve before waiting for a reset
	rateLimitBuffer = 5
)

// RateLimitInfo holds information about GitHub API rate limits
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
	// Set from Retry-After on secondary rate limits
	SecondaryLimitReset time.Time
}

// GitHubClient represents a client for interacting with the GitHub API
type GitHubClient struct {
	client  *http.Client
	baseURL string
	logger  *logrus.Logger

	mu            sync.Mutex
	rateLimitInfo RateLimitInfo

	maxRetries      int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
	retryMultiplier float64
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*GitHubClient)

// WithRetryConfig configures retry behavior
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *GitHubClient) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithRetryMultiplier sets the factor applied to the backoff after each failed attempt
func WithRetryMultiplier(m float64) ClientOption {
	return func(c *GitHubClient) {
		if m >= 1 {
			c.retryMultiplier = m
		}
	}
}

// WithBaseURL points the client at a different API root (GitHub Enterprise, tests)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *GitHubClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithRequestTimeout bounds a single HTTP exchange, retries excluded
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *GitHubClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewGitHubClient creates a new GitHub client with the given token and options
func NewGitHubClient(token string, logger *logrus.Logger, opts ...ClientOption) *GitHubClient {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = 120 * time.Second

	client := &GitHubClient{
		client:          httpClient,
		baseURL:         defaultBaseURL,
		logger:          logger,
		maxRetries:      3,
		initialBackoff:  time.Second,
		maxBackoff:      time.Minute,
		retryMultiplier: 2,
	}

	for _, opt := range opts {
		opt(client)
	}
	if client.maxRetries < 1 {
		client.maxRetries = 1
	}

	return client
}

// RateLimit returns a snapshot of the last observed rate limit headers
func (c *GitHubClient) RateLimit() RateLimitInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateLimitInfo
}

// updateRateLimitInfo updates the rate limit information from response headers
func (c *GitHubClient) updateRateLimitInfo(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		c.rateLimitInfo.Limit, _ = strconv.Atoi(limit)
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		c.rateLimitInfo.Remaining, _ = strconv.Atoi(remaining)
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if resetTime, err := strconv.ParseInt(reset, 10, 64); err == nil {
			c.rateLimitInfo.ResetTime = time.Unix(resetTime, 0)
		}
	}

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if retrySeconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
			c.rateLimitInfo.SecondaryLimitReset = time.Now().Add(time.Duration(retrySeconds) * time.Second)
		}
	}
}

// rateLimitWait returns how long to wait before the next request
func (c *GitHubClient) rateLimitWait() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	var wait time.Duration
	if c.rateLimitInfo.Limit > 0 && c.rateLimitInfo.Remaining <= rateLimitBuffer {
		wait = time.Until(c.rateLimitInfo.ResetTime)
	}
	if secondary := time.Until(c.rateLimitInfo.SecondaryLimitReset); secondary > wait {
		wait = secondary
	}
	return wait
}

// checkRateLimit waits out an exhausted primary or active secondary rate limit
func (c *GitHubClient) checkRateLimit(ctx context.Context) error {
	wait := c.rateLimitWait()
	if wait <= 0 {
		return nil
	}
	c.logger.Warnf("Rate limit nearly exceeded. Waiting %v before next request", wait)
	return sleepContext(ctx, wait)
}

// retryWait is the pause after a 429, bounded by maxBackoff
func (c *GitHubClient) retryWait() time.Duration {
	info := c.RateLimit()
	resetTime := info.ResetTime
	if !info.SecondaryLimitReset.IsZero() {
		resetTime = info.SecondaryLimitReset
	}
	wait := time.Until(resetTime)
	if wait < c.initialBackoff {
		wait = c.initialBackoff
	}
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	return wait
}

func (c *GitHubClient) nextBackoff(backoff time.Duration) time.Duration {
	return time.Duration(math.Min(float64(backoff)*c.retryMultiplier, float64(c.maxBackoff)))
}

// doRequestWithBackoff performs a GET with exponential backoff and returns the body and headers
func (c *GitHubClient) doRequestWithBackoff(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoff); err != nil {
				return nil, nil, err
			}
			backoff = c.nextBackoff(backoff)
		}

		if err := c.checkRateLimit(ctx); err != nil {
			return nil, nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			lastErr = NewGitHubError(0, "request failed", err)
			c.logger.Warnf("Request attempt %d failed: %v", attempt+1, err)
			continue
		}

		c.updateRateLimitInfo(resp)

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = NewGitHubError(resp.StatusCode, "failed to read response body", err)
			continue
		}

		if isRateLimited(resp) {
			info := c.RateLimit()
			lastErr = NewRateLimitError(info.ResetTime, info.Limit, info.Remaining)
			wait := c.retryWait()
			c.logger.Warnf("Rate limit exceeded. Waiting %v before retry", wait)
			if err := sleepContext(ctx, wait); err != nil {
				return nil, nil, err
			}
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = NewGitHubError(resp.StatusCode, string(body), nil)
			c.logger.Warnf("Request attempt %d failed with status %d", attempt+1, resp.StatusCode)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, nil, NewGitHubError(resp.StatusCode, strings.TrimSpace(string(body)), nil)
		}

		return body, resp.Header, nil
	}

	return nil, nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// paginate walks every page of a list endpoint, following Link rel="next".
// Each page body is handed to page; an error from page stops the walk and is returned as is.
func (c *GitHubClient) paginate(ctx context.Context, path string, query url.Values, page func(body []byte) error) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("per_page", perPage)
	next := c.baseURL + path + "?" + query.Encode()

	logger := c.logger.WithField("path", path)
	pages := 0
	for next != "" {
		body, header, err := c.doRequestWithBackoff(ctx, next)
		if err != nil {
			return apperrors.NewSourceReadError(fmt.Sprintf("GET %s (page %d)", path, pages+1), err)
		}
		pages++
		logger.WithField("page", pages).Debug("Fetched page from GitHub API")

		if err := page(body); err != nil {
			return err
		}
		next = nextPageURL(header.Get("Link"))
	}
	return nil
}

// get fetches a single resource
func (c *GitHubClient) get(ctx context.Context, path string) ([]byte, error) {
	body, _, err := c.doRequestWithBackoff(ctx, c.baseURL+path)
	if err != nil {
		return nil, apperrors.NewSourceReadError("GET "+path, err)
	}
	return body, nil
}

// nextPageURL extracts the rel="next" target of a Link header
func nextPageURL(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, attr := range segments[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
