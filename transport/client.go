package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/hirograph/config"
)

// Client wraps net/http with hirograph-specific functionality.
//
// It provides per-request timeouts, optional accept-all TLS for development
// instances, and bounded retry with backoff for retryable statuses.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	retryable  map[int]struct{}

	// logger for retry/transport logging (optional, set via SetLogger).
	logger Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Request describes one HTTP exchange against the platform.
type Request struct {
	Method  string
	URL     string
	Query   url.Values
	Headers http.Header
	Body    []byte

	// Timeout overrides the client default for this request when positive.
	Timeout time.Duration

	// MaxRetries overrides the client default when non-nil.
	MaxRetries *int
}

// Response is the decoded outcome of a Request.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// maxRetryDelay caps the multiplicative backoff between attempts.
const maxRetryDelay = 10 * time.Second

// New creates a Client from a connection profile.
//
// Parameters:
//   - profile: Connection profile carrying timeout, TLS and retry settings
//
// Returns:
//   - *Client: Configured client ready for use
func New(profile config.Profile) *Client {
	httpClient := &http.Client{}
	if profile.TLS.AcceptAll {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // accept-all is a caller-supplied development switch
		}
	}

	return &Client{
		http:       httpClient,
		timeout:    profile.RequestTimeout(),
		maxRetries: profile.HTTP.MaxRetries,
		retryDelay: profile.RetryDelay(),
		retryable:  defaultRetryable(),
	}
}

// defaultRetryable returns the status codes retried when MaxRetries > 0.
// 5xx responses plus 429 are transient; everything else is terminal.
func defaultRetryable() map[int]struct{} {
	return map[int]struct{}{
		http.StatusTooManyRequests:     {},
		http.StatusInternalServerError: {},
		http.StatusBadGateway:          {},
		http.StatusServiceUnavailable:  {},
		http.StatusGatewayTimeout:      {},
	}
}

// SetLogger sets a logger for retry and transport failure logging.
// If not set, retries happen silently.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// SetRetryableStatuses replaces the set of statuses eligible for retry.
func (c *Client) SetRetryableStatuses(statuses ...int) {
	set := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	c.retryable = set
}

// Do executes a request and returns the response regardless of status code.
//
// Retry policy:
//   - Connection-level failures and retryable statuses are retried up to
//     the configured MaxRetries with capped multiplicative backoff.
//   - Deadline exceedance is surfaced as ErrTimeout and never retried.
//   - The caller's context bounds the whole exchange including backoff.
//
// Parameters:
//   - ctx: Context for cancellation; the per-request timeout is layered on top
//   - req: Request to execute
//
// Returns:
//   - *Response: Response with status, headers and fully-read body
//   - error: ErrTimeout, ErrConnectionFailed-wrapped transport errors, or nil
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	retries := c.maxRetries
	if req.MaxRetries != nil {
		retries = *req.MaxRetries
	}
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			if c.logger != nil {
				c.logger.Debug("retrying request",
					"method", req.Method,
					"url", req.URL,
					"attempt", attempt+1,
				)
			}
		}

		resp, err := c.doOnce(ctx, req)
		if err != nil {
			if errors.Is(err, ErrTimeout) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			if c.logger != nil {
				c.logger.Warn("request failed", "method", req.Method, "url", req.URL, "error", err)
			}
			continue
		}

		if _, retry := c.retryable[resp.Status]; retry && attempt < retries {
			lastErr = &HTTPError{Status: resp.Status, Body: resp.Body, Method: req.Method, URL: req.URL}
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// doOnce performs a single HTTP exchange.
func (c *Client) doOnce(ctx context.Context, req *Request) (*Response, error) {
	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, req.Method, req.URL)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read side fully drained below

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, req.Method, req.URL)
		}
		return nil, fmt.Errorf("%w: reading body: %w", ErrConnectionFailed, err)
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    payload,
	}, nil
}

// backoff sleeps between retry attempts, bounded by the context.
// Delay doubles per attempt, capped at maxRetryDelay.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.retryDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isTimeout reports whether err (or the context) represents deadline exceedance.
func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
