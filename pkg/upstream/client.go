// Package upstream provides a client for the dealer/review backend and the
// sentiment analyzer service.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bestcars/dealership-engine/pkg/apperrors"
	"github.com/bestcars/dealership-engine/pkg/logging"
	"github.com/bestcars/dealership-engine/pkg/retry"
)

// DefaultTimeout is the maximum time to wait for an upstream response.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 10 << 20

// Upstream names used in logs, metrics and breaker names.
const (
	BackendName   = "backend"
	SentimentName = "sentiment"
)

// InsertReviewEndpoint is the backend endpoint that stores a new review.
const InsertReviewEndpoint = "/insert_review"

// Config configures a Client. Zero values fall back to documented defaults.
type Config struct {
	// BackendURL is the dealer/review backend, e.g. http://localhost:3030.
	BackendURL string
	// SentimentAnalyzerURL is the sentiment service, e.g. http://localhost:5050/.
	SentimentAnalyzerURL string
	// Timeout bounds every individual HTTP call. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retry applies to GET requests only. Defaults to retry.DefaultConfig().
	Retry *retry.Config
	// BreakerThreshold is the consecutive failure count that opens a breaker.
	BreakerThreshold uint32
	// BreakerCooldown is how long an open breaker rejects calls.
	BreakerCooldown time.Duration
}

// SentimentResult is the sentiment service's answer for one text.
type SentimentResult struct {
	Sentiment string `json:"sentiment"`
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Upstream   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Upstream, e.StatusCode, e.Body)
}

// IsRetryable marks server-side and throttling responses as transient.
func (e *StatusError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client provides access to the dealer backend and the sentiment analyzer.
// Every failure is returned wrapped in apperrors.ErrUpstreamUnavailable.
type Client struct {
	httpClient   *http.Client
	backendURL   string
	sentimentURL string
	retryCfg     *retry.Config
	backend      *breaker
	sentiment    *breaker
	logger       *zap.Logger
}

// NewClient creates a new upstream client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}

	logger = logger.Named("upstream")

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backendURL:   strings.TrimRight(cfg.BackendURL, "/"),
		sentimentURL: strings.TrimRight(cfg.SentimentAnalyzerURL, "/"),
		retryCfg:     retryCfg,
		backend:      newBreaker(BackendName, cfg.BreakerThreshold, cfg.BreakerCooldown, logger),
		sentiment:    newBreaker(SentimentName, cfg.BreakerThreshold, cfg.BreakerCooldown, logger),
		logger:       logger,
	}
}

// Get issues a GET against the dealer backend. endpoint must already be
// path-escaped (e.g. "/fetchDealers/New%20York"). Query params are appended when present.
// Transient failures are retried.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	requestURL := buildURL(c.backendURL, endpoint)
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	c.logger.Debug("GET from dealer backend", zap.String("url", logging.SanitizeURL(requestURL)))

	return c.do(ctx, c.backend, http.MethodGet, requestURL, nil, true)
}

// PostReview sends payload verbatim to the backend's insert_review endpoint.
// Posting is not idempotent, so it is never retried.
func (c *Client) PostReview(ctx context.Context, payload []byte) (json.RawMessage, error) {
	requestURL := buildURL(c.backendURL, InsertReviewEndpoint)

	c.logger.Debug("POST review to dealer backend",
		zap.String("url", logging.SanitizeURL(requestURL)),
		zap.Int("bytes", len(payload)))

	return c.do(ctx, c.backend, http.MethodPost, requestURL, payload, false)
}

// AnalyzeSentiment asks the sentiment service to classify text.
// The text is percent-encoded into a single path segment.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (*SentimentResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("sentiment text is empty")
	}

	requestURL := buildURL(c.sentimentURL, "analyze", url.PathEscape(text))

	body, err := c.do(ctx, c.sentiment, http.MethodGet, requestURL, nil, true)
	if err != nil {
		return nil, err
	}

	var result SentimentResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse sentiment response: %w", apperrors.ErrUpstreamUnavailable, err)
	}

	return &result, nil
}

// do runs one logical call through the upstream's breaker, retrying inside it when allowed.
func (c *Client) do(ctx context.Context, b *breaker, method, requestURL string, payload []byte, retryable bool) (json.RawMessage, error) {
	start := time.Now()

	body, err := b.execute(func() ([]byte, error) {
		if !retryable {
			return c.roundTrip(ctx, b.name, method, requestURL, payload)
		}

		var out []byte
		err := retry.DoIfRetryable(ctx, c.retryCfg, func() error {
			var callErr error
			out, callErr = c.roundTrip(ctx, b.name, method, requestURL, payload)
			return callErr
		})
		return out, err
	})

	requestDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if isBreakerRejection(err) {
			outcome = "rejected"
		}
		requestsTotal.WithLabelValues(b.name, method, outcome).Inc()

		c.logger.Warn("Upstream request failed",
			zap.String("upstream", b.name),
			zap.String("method", method),
			zap.String("url", logging.SanitizeURL(requestURL)),
			zap.String("error", logging.SanitizeError(err)))

		return nil, fmt.Errorf("%w: %s %s: %w", apperrors.ErrUpstreamUnavailable, method, b.name, err)
	}

	requestsTotal.WithLabelValues(b.name, method, "success").Inc()
	return body, nil
}

// roundTrip executes a single HTTP request and validates the JSON response.
func (c *Client) roundTrip(ctx context.Context, name, method, requestURL string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Upstream:   name,
			StatusCode: resp.StatusCode,
			Body:       logging.TruncateString(string(body), logging.MaxBodyLogLength),
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%s returned invalid JSON: %s", name,
			logging.TruncateString(string(body), logging.MaxBodyLogLength))
	}

	return body, nil
}

// buildURL joins a base URL and already-escaped path segments with single slashes.
// Segments are not cleaned, so ".." in user text stays a literal path segment.
func buildURL(baseURL string, pathSegments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	for _, segment := range pathSegments {
		segment = strings.Trim(segment, "/")
		if segment == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(segment)
	}
	return b.String()
}
