// Package client provides the request executor of the commerce API client:
// JSON request building, rate-limit aware retry and error classification.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/commerce-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for executor operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_requests_total",
		Help: "Total API requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commerce_request_duration_seconds",
		Help:    "API request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_rate_limit_waits_total",
		Help: "Total number of waits caused by 429 responses",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "commerce_rate_limit_wait_seconds",
		Help:    "Time spent waiting for the rate limit to reset",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	rateLimitExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commerce_rate_limit_exhausted_total",
		Help: "Total number of requests still rate limited after their retry",
	})
)

// TokenSource supplies the bearer token sent with every request.
// Token acquisition and refresh happen outside this package.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// Executor issues API requests.
//
// An Executor remembers the last response it received; it is meant to be
// driven by one goroutine at a time.
type Executor struct {
	httpClient   *http.Client
	rateLimiter  *ratelimit.Tracker
	config       Config
	logger       zerolog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
	lastResponse *Response
}

// Config holds the executor configuration.
type Config struct {
	// BaseURL of the API, e.g. "https://shop.example.com/api/v1" (REQUIRED)
	BaseURL string

	// User-Agent header (REQUIRED)
	UserAgent string

	// Token is optional; when set its token is sent as a Bearer Authorization header
	Token TokenSource

	// Timeout per HTTP round trip
	Timeout time.Duration

	// WaitOnRateLimit enables the wait-and-retry-once protocol for 429 responses
	WaitOnRateLimit bool

	// DefaultRateLimitWait is used when no reset time has been reported
	DefaultRateLimitWait time.Duration

	// ResetHeader names the header carrying the reset time (epoch seconds)
	ResetHeader string

	// RateLimitStore holds the reset state (default: in-memory)
	RateLimitStore ratelimit.Store

	// Logger overrides the component logger
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:              baseURL,
		UserAgent:            userAgent,
		Timeout:              30 * time.Second,
		WaitOnRateLimit:      true,
		DefaultRateLimitWait: ratelimit.DefaultWait,
		ResetHeader:          ratelimit.DefaultResetHeader,
	}
}

// New creates a new executor.
func New(cfg Config) (*Executor, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.DefaultRateLimitWait <= 0 {
		return nil, fmt.Errorf("default_rate_limit_wait must be > 0 (got %s)", cfg.DefaultRateLimitWait)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "commerce-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	rateLimiter := ratelimit.NewTracker(cfg.RateLimitStore, logger)
	rateLimiter.SetHeader(cfg.ResetHeader)

	return &Executor{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rateLimiter,
		config:      cfg,
		logger:      logger,
		sleep:       sleepContext,
	}, nil
}

// Do performs a request. Bodies are sent as JSON; a 429 response triggers a
// single wait-and-retry when the configuration allows it. Every non-2xx status
// is returned as *Error along with the response.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	resp, err := e.send(ctx, req, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp, err = e.retryAfterRateLimit(ctx, req, body, resp)
		if err != nil {
			return resp, err
		}
	}

	if !resp.Success() {
		apiErr := newStatusError(resp, nil)
		errorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
		e.logger.Debug().
			Str("method", req.Method).
			Str("path", req.Path).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("API request error")
		return resp, apiErr
	}

	return resp, nil
}

// send performs one HTTP round trip and reads the whole response.
func (e *Executor) send(ctx context.Context, req Request, body []byte) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	httpReq, err := e.buildRequest(ctx, method, req, body)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("method", method).
		Str("url", httpReq.URL.String()).
		Msg("Executing API request")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.logger.Error().Err(err).Str("path", req.Path).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(method, "network_error").Inc()
		return nil, newNetworkError(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, newNetworkError(fmt.Errorf("read response body: %w", err))
	}

	requestsTotal.WithLabelValues(method, strconv.Itoa(httpResp.StatusCode)).Inc()

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}
	e.lastResponse = resp

	if err := e.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	return resp, nil
}

// buildRequest constructs the *http.Request for one attempt.
func (e *Executor) buildRequest(ctx context.Context, method string, req Request, body []byte) (*http.Request, error) {
	target := strings.TrimRight(e.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", e.config.UserAgent)
	httpReq.Header.Set("Accept", ContentTypeJSON)
	if body != nil {
		httpReq.Header.Set(HeaderContentType, ContentTypeJSON)
	}

	if e.config.Token != nil {
		token, err := e.config.Token.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(HeaderIdempotencyKey, req.IdempotencyKey)
	}

	return httpReq, nil
}

// LastResponse returns the most recent response received.
func (e *Executor) LastResponse() (*Response, bool) {
	return e.lastResponse, e.lastResponse != nil
}

// Close releases resources held by the executor.
func (e *Executor) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (e *Executor) SetHTTPClient(client *http.Client) {
	e.httpClient = client
}

// RateLimiter returns the rate limit tracker (for testing).
func (e *Executor) RateLimiter() *ratelimit.Tracker {
	return e.rateLimiter
}
