package rest

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/metric"
	"github.com/c360/botkit/pkg/retry"
)

// Version is the library version advertised in the User-Agent header.
const Version = "0.1.0"

// maxAttempts is the shared ceiling for all retry paths: transport
// failures, 429 waits, and retryable 5xx responses all count against the
// same five attempts. There is never a sixth attempt.
const maxAttempts = 5

// retryableStatuses are server responses retried unconditionally with
// backoff. 524 is an upstream-timeout status used by CDN fronts.
var retryableStatuses = map[int]bool{
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
	524:                            true,
}

// Config holds REST client settings.
type Config struct {
	BaseURL   string
	MediaURL  string // media upload host; empty disables UploadMedia
	Token     string
	Timeout   time.Duration
	RateLimit float64 // client-side requests per second, 0 = unlimited
	RateBurst int
	UserAgent string

	// BackoffUnit scales the linear retry schedule (1 + 2*attempt units).
	// Defaults to one second; tests shrink it.
	BackoffUnit time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.With("component", "rest")
		}
	}
}

// WithMetrics enables Prometheus metrics for request outcomes.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) {
		c.metrics = newRestMetrics(registry)
	}
}

// Client executes logical HTTP calls against the platform API. A single
// Client is safe for concurrent use; each call retries independently, so
// a rate-limited call waits without blocking unrelated callers.
type Client struct {
	baseURL     string
	mediaURL    string
	token       string
	http        *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	metrics     *restMetrics
	userAgent   string
	backoffUnit time.Duration
}

// NewClient creates a REST client from configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "rest", "NewClient", "base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.WrapInvalid(err, "rest", "NewClient", "parse base URL")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	backoffUnit := cfg.BackoffUnit
	if backoffUnit == 0 {
		backoffUnit = time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("botkit (https://github.com/c360/botkit, v%s) Go/%s", Version, runtime.Version())
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		mediaURL:    strings.TrimRight(cfg.MediaURL, "/"),
		token:       cfg.Token,
		http:        &http.Client{Timeout: timeout},
		logger:      slog.Default().With("component", "rest"),
		userAgent:   userAgent,
		backoffUnit: backoffUnit,
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// Request describes one logical call: the route, an optional JSON
// payload, optional query parameters, and optional file attachments
// (which switch the body to multipart form data).
type Request struct {
	Route   *Route
	Payload any
	Query   url.Values
	Files   []File
}

// response is one attempt's outcome prior to classification.
type response struct {
	status      int
	body        []byte
	contentType string
	retryAfter  string
}

// Do executes the request with the full retry discipline and returns the
// raw response body. Media responses (image/, video/ content types) pass
// through as bytes; structured callers use DoJSON.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// DoJSON executes the request and decodes the JSON response body into
// out. A nil out or an empty body skips decoding.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if isMediaContentType(resp.contentType) {
		return errors.WrapInvalid(errors.ErrDecodeFailed, "rest", "DoJSON",
			"media response cannot be decoded as JSON, use Do")
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return errors.WrapInvalid(err, "rest", "DoJSON", "decode response body")
	}
	return nil
}

func (c *Client) do(ctx context.Context, req Request) (*response, error) {
	if req.Route == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidPayload, "rest", "Do", "nil route")
	}

	reqURL := c.buildURL(req)
	body, contentType, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	schedule := retry.Linear(maxAttempts, c.backoffUnit, 2*c.backoffUnit)

	var last *response
	var lastWait time.Duration

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, errors.WrapTransient(err, "rest", "Do", "rate limiter wait")
			}
		}
		if attempt > 0 {
			c.metrics.recordRetry()
		}

		resp, err := c.attempt(ctx, req.Route, reqURL, body, contentType, requestID, attempt)
		if err != nil {
			if !retryableTransport(err) || attempt == maxAttempts-1 {
				return nil, errors.WrapTransient(c.redact(err), "rest", "Do", req.Route.String())
			}
			c.logger.Warn("transport error, retrying",
				"route", req.Route.String(),
				"attempt", attempt,
				"request_id", requestID,
				"error", c.redact(err))
			if err := retry.Sleep(ctx, retry.DelayFor(schedule, attempt)); err != nil {
				return nil, errors.WrapTransient(err, "rest", "Do", "backoff interrupted")
			}
			continue
		}

		last = resp

		switch {
		case resp.status >= 200 && resp.status < 300:
			return resp, nil

		case resp.status == http.StatusTooManyRequests:
			wait := retryAfterDuration(resp.retryAfter, retry.DelayFor(schedule, attempt))
			lastWait = wait
			c.metrics.recordRateLimited()
			c.logger.Warn("rate limited",
				"route", req.Route.String(),
				"retry_after", wait,
				"attempt", attempt,
				"request_id", requestID)
			if attempt == maxAttempts-1 {
				break
			}
			if err := retry.Sleep(ctx, wait); err != nil {
				return nil, errors.WrapTransient(err, "rest", "Do", "rate limit wait interrupted")
			}
			continue

		case retryableStatuses[resp.status]:
			if attempt == maxAttempts-1 {
				break
			}
			c.logger.Warn("server error, retrying",
				"route", req.Route.String(),
				"status", resp.status,
				"attempt", attempt,
				"request_id", requestID)
			if err := retry.Sleep(ctx, retry.DelayFor(schedule, attempt)); err != nil {
				return nil, errors.WrapTransient(err, "rest", "Do", "backoff interrupted")
			}
			continue

		default:
			// Terminal response: 403 and 404 get their distinguished
			// types, other 5xx are server errors, everything else is a
			// generic HTTP error.
			if resp.status >= 500 {
				return nil, c.serverError(resp, attempt+1)
			}
			return nil, errors.FromResponse(resp.status, resp.body)
		}
		break
	}

	// Retries exhausted: surface the last response as a typed error.
	if last.status == http.StatusTooManyRequests {
		base, _ := errors.FromResponse(last.status, last.body).(*errors.HTTPError)
		return nil, &errors.RateLimited{HTTPError: *base, RetryAfter: lastWait}
	}
	return nil, c.serverError(last, maxAttempts)
}

// serverError builds the exhausted-retries 5xx error.
func (c *Client) serverError(resp *response, attempts int) error {
	base, ok := errors.FromResponse(resp.status, resp.body).(*errors.HTTPError)
	if !ok {
		base = &errors.HTTPError{Status: resp.status}
	}
	return &errors.ServerError{HTTPError: *base, Attempts: attempts}
}

// attempt performs a single HTTP round-trip and records its outcome.
func (c *Client) attempt(
	ctx context.Context,
	route *Route,
	reqURL string,
	body []byte,
	contentType, requestID string,
	attempt int,
) (*response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	hreq, err := http.NewRequestWithContext(ctx, route.Method, reqURL, reader)
	if err != nil {
		return nil, err
	}

	hreq.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		hreq.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		c.metrics.recordRequest(route.Method, "error", time.Since(start))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.recordRequest(route.Method, "error", time.Since(start))
		return nil, err
	}

	c.metrics.recordRequest(route.Method, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.logger.Debug("request",
		"method", route.Method,
		"path", route.Path,
		"status", resp.StatusCode,
		"attempt", attempt,
		"request_id", requestID)

	return &response{
		status:      resp.StatusCode,
		body:        data,
		contentType: resp.Header.Get("Content-Type"),
		retryAfter:  resp.Header.Get("Retry-After"),
	}, nil
}

// buildURL resolves the request URL against the client base, honoring a
// per-route base override and query parameters.
func (c *Client) buildURL(req Request) string {
	base := c.baseURL
	if req.Route.Base != "" {
		base = req.Route.Base
	}
	u := base + req.Route.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

// buildBody encodes the request body: multipart when files are attached,
// plain JSON otherwise.
func (c *Client) buildBody(req Request) ([]byte, string, error) {
	if len(req.Files) > 0 {
		return encodeMultipart(req.Payload, req.Files)
	}
	if req.Payload == nil {
		return nil, "", nil
	}
	data, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, "", errors.WrapInvalid(err, "rest", "buildBody", "marshal payload")
	}
	return data, "application/json", nil
}

// redact strips the bearer token from an error before it reaches logs or
// callers.
func (c *Client) redact(err error) error {
	if err == nil || c.token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, c.token) {
		return err
	}
	return stderrors.New(strings.ReplaceAll(msg, c.token, "[removed]"))
}

// retryableTransport reports whether a low-level transport failure is in
// the known-retryable set: connection resets, broken pipes, and timeouts.
// Anything else is terminal on first occurrence.
func retryableTransport(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, syscall.ECONNRESET) || stderrors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// retryAfterDuration parses a server Retry-After value (integer or float
// seconds), falling back to the supplied backoff. The server value always
// wins when parseable so the observed wait is at least what was mandated.
func retryAfterDuration(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(header, 64)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

// isMediaContentType reports whether a response is binary media that
// bypasses JSON decoding.
func isMediaContentType(ct string) bool {
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}
