package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/fundnav/pkg/config"
	"github.com/wonny/fundnav/pkg/logger"
	"github.com/wonny/fundnav/pkg/redis"
)

// ErrInvalidProxy is returned by New when the configured proxy cannot be used
var ErrInvalidProxy = errors.New("invalid proxy configuration")

// StatusError is returned when the upstream answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Client is an HTTP client wrapper with proxy, pacing, retry and logging.
// One Client is built per process and passed to every vendor client; there is no
// package-level transport state.
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	userAgent    string
	retryConfig  RetryConfig
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.HTTP.ProxyURL != "" {
		if err := config.ValidateProxyURL(cfg.HTTP.ProxyURL); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
		}
		proxy, _ := url.Parse(cfg.HTTP.ProxyURL)
		transport.Proxy = http.ProxyURL(proxy)
	}

	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger:    log.WithModule("httputil"),
		userAgent: cfg.HTTP.UserAgent,
		retryConfig: RetryConfig{
			MaxRetries:   cfg.HTTP.MaxRetries,
			InitialDelay: cfg.HTTP.RetryDelay,
			MaxDelay:     5 * time.Second,
			Enabled:      cfg.HTTP.MaxRetries > 0,
		},
	}

	if cfg.HTTP.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RatePerSec), cfg.HTTP.RatePerSec)
	}

	return c, nil
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.Enabled = maxRetries > 0
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithRateLimiter adds a shared (redis) rate limit on top of the local limiter
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// Get performs a GET request with optional extra headers
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.do(req)
}

// GetText performs a GET request and returns the body as a string.
// Any non-200 status is returned as *StatusError.
func (c *Client) GetText(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	resp, err := c.Get(ctx, rawURL, headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}

// do executes the request with pacing, retry logic and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	startTime := time.Now()
	target := req.URL.String()

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(req.Context(), *c.rateLimitCfg); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.httpClient.Do(req)
	}

	duration := time.Since(startTime)

	if err != nil {
		c.logger.WithFields(map[string]interface{}{
			"method":   req.Method,
			"url":      target,
			"duration": duration,
			"error":    err.Error(),
		}).Warn("HTTP request failed")
		return nil, fmt.Errorf("HTTP request failed: %s: %w", target, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"method":      req.Method,
		"url":         target,
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// doWithRetry executes the request with exponential backoff retry
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	delay := c.retryConfig.InitialDelay

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		resp, err = c.httpClient.Do(req)

		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		if resp != nil {
			resp.Body.Close()
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"url":     req.URL.String(),
		}).Debug("Retrying HTTP request")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	return resp, err
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
