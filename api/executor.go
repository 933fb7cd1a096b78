package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nerrad567/hirograph/auth"
	"github.com/nerrad567/hirograph/transport"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Executor performs authenticated REST calls against the platform.
//
// It injects the token handler's current access token as a bearer header
// and owns the 401 policy: exactly one refresh-and-retry cycle per call,
// after which a second 401 is terminal. Retry of retryable statuses and the
// timeout contract live in the transport underneath.
//
// The Executor is stateless per call apart from the token refresh it may
// trigger on the shared handler; one instance serves any number of
// concurrent goroutines.
type Executor struct {
	transport *transport.Client
	tokens    auth.Handler
	logger    Logger
}

// NewExecutor creates an authenticated request executor.
//
// Parameters:
//   - tc: HTTP transport (shared, not owned)
//   - tokens: Token handler (shared, not owned)
func NewExecutor(tc *transport.Client, tokens auth.Handler) *Executor {
	return &Executor{transport: tc, tokens: tokens}
}

// SetLogger sets a logger for 401-retry logging.
func (e *Executor) SetLogger(logger Logger) {
	e.logger = logger
}

// Execute performs one authenticated request.
//
// Policy:
//   - HTTP 401 triggers exactly one Refresh(force=false) on the shared
//     handler — benefiting from refresh-storm collapse — then one retry
//     with the new token. A second 401 fails with ErrUnauthorized.
//   - Other non-2xx statuses fail with *transport.HTTPError carrying status
//     and body. Retryable statuses were already retried by the transport.
//   - Timeouts fail with transport.ErrTimeout and are never retried.
//
// Returns:
//   - *transport.Response: The successful (2xx) response
//   - error: Typed error as above
func (e *Executor) Execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := e.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.Status == http.StatusUnauthorized {
		if e.logger != nil {
			e.logger.Debug("401 received, refreshing token and retrying once",
				"method", req.Method, "url", req.URL)
		}
		if err := e.tokens.Refresh(ctx, false); err != nil {
			return nil, fmt.Errorf("refreshing token after 401: %w", err)
		}

		resp, err = e.do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s %s: %s", ErrUnauthorized, req.Method, req.URL, resp.Body)
		}
	}

	if resp.Status < 200 || resp.Status > 299 {
		return nil, &transport.HTTPError{
			Status: resp.Status,
			Body:   resp.Body,
			Method: req.Method,
			URL:    req.URL,
		}
	}

	return resp, nil
}

// do injects the current bearer token and delegates to the transport.
func (e *Executor) do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	for key, values := range req.Headers {
		headers[key] = values
	}
	headers.Set("Authorization", "Bearer "+token)

	authed := *req
	authed.Headers = headers
	return e.transport.Do(ctx, &authed)
}

// ExecuteJSON performs one authenticated exchange with JSON bodies on both
// sides. A nil body sends no payload; a nil out discards the response body.
func (e *Executor) ExecuteJSON(ctx context.Context, method, rawURL string, query url.Values, body, out any) error {
	req := &transport.Request{
		Method: method,
		URL:    rawURL,
		Query:  query,
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		req.Body = payload
		req.Headers = http.Header{}
		req.Headers.Set("Content-Type", "application/json")
	}

	resp, err := e.Execute(ctx, req)
	if err != nil {
		return err
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}
