package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/hirograph/config"
	"github.com/nerrad567/hirograph/transport"
)

// EndpointFunc resolves the auth API base URL (e.g. the versioned
// "/api/auth/6.6" path joined to the platform root). Supplied by the api
// package's version resolver so this package stays free of discovery logic.
type EndpointFunc func(ctx context.Context) (string, error)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// PasswordHandler acquires tokens through the password grant and keeps them
// fresh through the refresh grant.
//
// It is the coordination point for the whole client: one handler is shared
// by reference across REST executors and WebSocket sessions, and guarantees
// that any number of concurrent Refresh calls collapse into a single network
// exchange whose outcome every caller observes.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Token reads are lock-free; the current token is an atomically
//     published value replaced wholesale on refresh.
type PasswordHandler struct {
	transport *transport.Client
	endpoint  EndpointFunc

	username     string
	password     string
	clientID     string
	clientSecret string

	minRefreshInterval time.Duration
	leeway             time.Duration

	current atomic.Pointer[Token]

	// mu guards inflight and lastRefreshAt. It is never held across
	// network I/O: the in-flight call is published under the lock, the
	// exchange runs outside it.
	mu            sync.Mutex
	inflight      *refreshCall
	lastRefreshAt time.Time

	// optional collaborators
	logger  Logger
	cache   *TokenCache
	profile string
}

// refreshCall is the single-slot latch for in-flight token exchanges.
// Callers arriving while an exchange runs wait on done and share its
// outcome instead of issuing a second network call.
type refreshCall struct {
	done chan struct{}
	err  error
}

func newRefreshCall() *refreshCall {
	return &refreshCall{done: make(chan struct{})}
}

func (c *refreshCall) finish(err error) {
	c.err = err
	close(c.done)
}

func (c *refreshCall) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewPasswordHandler creates a credential-based token handler for a profile.
//
// Parameters:
//   - tc: HTTP transport shared with the rest of the client
//   - endpoint: Auth API endpoint resolver
//   - profile: Connection profile carrying credentials and lifecycle tuning
//
// Returns:
//   - *PasswordHandler: Handler ready for use; no network I/O happens here
func NewPasswordHandler(tc *transport.Client, endpoint EndpointFunc, profile config.Profile) *PasswordHandler {
	return &PasswordHandler{
		transport:          tc,
		endpoint:           endpoint,
		username:           profile.Credentials.Username,
		password:           profile.Credentials.Password,
		clientID:           profile.Client.ID,
		clientSecret:       profile.Client.Secret,
		minRefreshInterval: profile.MinRefreshInterval(),
		leeway:             profile.RefreshLeeway(),
	}
}

// SetLogger sets a logger for refresh/fallback logging.
func (h *PasswordHandler) SetLogger(logger Logger) {
	h.logger = logger
}

// SetCache attaches an on-disk token cache keyed by profile name.
// Cached tokens are consulted by EnsureToken and written after every
// successful exchange, so separate processes reuse sessions.
func (h *PasswordHandler) SetCache(cache *TokenCache, profile string) {
	h.cache = cache
	h.profile = profile
}

// Current returns the current token value, or nil. Never blocks.
func (h *PasswordHandler) Current() *Token {
	return h.current.Load()
}

// Token returns the current access token, acquiring or refreshing one first
// when needed. The fast path is a single atomic read.
func (h *PasswordHandler) Token(ctx context.Context) (string, error) {
	tok := h.current.Load()
	if tok == nil {
		if err := h.EnsureToken(ctx); err != nil {
			return "", err
		}
		tok = h.current.Load()
		if tok == nil {
			return "", ErrNoToken
		}
	}

	if tok.Expired(h.leeway) {
		if err := h.Refresh(ctx, false); err != nil {
			return "", err
		}
		// A Revoke or Close racing the refresh may have cleared the slot
		// between the exchange and this reload.
		tok = h.current.Load()
		if tok == nil {
			return "", ErrNoToken
		}
	}

	return tok.Access, nil
}

// EnsureToken acquires an initial token if none is held.
//
// The cache (when attached) is consulted first; a live cached token is
// adopted without any network traffic. Otherwise a password-grant login is
// performed, funnelled through the same single-flight latch as Refresh so
// concurrent first callers produce one login.
func (h *PasswordHandler) EnsureToken(ctx context.Context) error {
	if h.current.Load() != nil {
		return nil
	}

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, h.profile); err == nil && !cached.Expired(h.leeway) {
			h.current.Store(cached)
			if h.logger != nil {
				h.logger.Debug("adopted cached token", "profile", h.profile)
			}
			return nil
		}
	}

	return h.single(ctx, func(ctx context.Context) error {
		if h.current.Load() != nil {
			// Another caller won the race.
			return nil
		}
		tok, err := h.login(ctx)
		if err != nil {
			return err
		}
		h.publish(ctx, tok)
		return nil
	})
}

// Refresh replaces the current token via the refresh grant, falling back to
// a full login when the refresh exchange is rejected by the server.
//
// Coordination:
//  1. Unless force is set, calls within the minimum refresh interval of the
//     last successful refresh return immediately. This collapses the storm
//     of refresh triggers produced by simultaneous 401 responses.
//  2. At most one exchange is in flight per handler; concurrent callers
//     wait for it and share its outcome.
//  3. An authentication-class rejection of the refresh grant triggers one
//     fallback login. Transport and timeout failures propagate unchanged:
//     repeating a full login during a network outage would only duplicate
//     the failure.
//  4. When both fail the current token is left unchanged (stale) and the
//     last error propagates.
func (h *PasswordHandler) Refresh(ctx context.Context, force bool) error {
	h.mu.Lock()
	if call := h.inflight; call != nil {
		h.mu.Unlock()
		return call.wait(ctx)
	}
	// Recency is checked under the same lock that publishes the latch, so
	// a caller can never slip between a finishing exchange and its
	// lastRefreshAt update and start a redundant one.
	if !force && !h.lastRefreshAt.IsZero() && time.Since(h.lastRefreshAt) < h.minRefreshInterval {
		h.mu.Unlock()
		return nil
	}
	call := newRefreshCall()
	h.inflight = call
	h.mu.Unlock()

	return h.run(ctx, call, func(ctx context.Context) error {
		tok, err := h.exchange(ctx)
		if err != nil {
			return err
		}
		h.publish(ctx, tok)
		return nil
	})
}

// single runs fn through the in-flight latch: the first caller executes it,
// everyone else waits for that execution's outcome.
func (h *PasswordHandler) single(ctx context.Context, fn func(context.Context) error) error {
	h.mu.Lock()
	if call := h.inflight; call != nil {
		h.mu.Unlock()
		return call.wait(ctx)
	}
	call := newRefreshCall()
	h.inflight = call
	h.mu.Unlock()

	return h.run(ctx, call, fn)
}

// run executes fn as the owner of the latch, records the refresh timestamp
// on success and releases every waiter with the outcome.
func (h *PasswordHandler) run(ctx context.Context, call *refreshCall, fn func(context.Context) error) error {
	err := fn(ctx)

	h.mu.Lock()
	if err == nil {
		h.lastRefreshAt = time.Now()
	}
	h.inflight = nil
	h.mu.Unlock()

	call.finish(err)
	return err
}

// exchange performs the refresh grant, with fallback login on auth-class
// rejection. Runs with the latch held by the owning caller.
func (h *PasswordHandler) exchange(ctx context.Context) (*Token, error) {
	cur := h.current.Load()
	if cur != nil && cur.Refresh != "" {
		tok, err := h.refreshGrant(ctx, cur.Refresh)
		if err == nil {
			return tok, nil
		}
		if !IsAuthError(err) {
			return nil, err
		}
		if h.logger != nil {
			h.logger.Warn("refresh grant rejected, falling back to login", "error", err)
		}
	}

	return h.login(ctx)
}

// publish atomically replaces the current token and writes through to the
// cache when one is attached.
func (h *PasswordHandler) publish(ctx context.Context, tok *Token) {
	h.current.Store(tok)
	if h.cache != nil {
		if err := h.cache.Put(ctx, h.profile, tok); err != nil && h.logger != nil {
			h.logger.Warn("token cache write failed", "profile", h.profile, "error", err)
		}
	}
}

// Revoke invalidates the refresh token server-side (best-effort) and clears
// the current token locally regardless of the server response.
func (h *PasswordHandler) Revoke(ctx context.Context) error {
	cur := h.current.Load()

	defer func() {
		h.current.Store(nil)
		if h.cache != nil {
			if err := h.cache.Delete(ctx, h.profile); err != nil && h.logger != nil {
				h.logger.Warn("token cache delete failed", "profile", h.profile, "error", err)
			}
		}
	}()

	if cur == nil || cur.Refresh == "" {
		return nil
	}

	form := url.Values{}
	form.Set("client_id", h.clientID)
	form.Set("client_secret", h.clientSecret)
	form.Set("token", cur.Refresh)
	form.Set("token_hint", "refresh_token")

	if _, err := h.post(ctx, "revoke", "/revoke", form); err != nil {
		if h.logger != nil {
			h.logger.Warn("server-side revoke failed, token cleared locally", "error", err)
		}
		return err
	}
	return nil
}

// Close clears the current token. The transport is not owned by the handler
// and is left untouched.
func (h *PasswordHandler) Close() error {
	h.current.Store(nil)
	return nil
}

// login performs a password-grant token request.
func (h *PasswordHandler) login(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", h.clientID)
	form.Set("client_secret", h.clientSecret)
	form.Set("username", h.username)
	form.Set("password", h.password)

	return h.post(ctx, "login", "/token", form)
}

// refreshGrant performs a refresh-grant token request.
func (h *PasswordHandler) refreshGrant(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", h.clientID)
	form.Set("client_secret", h.clientSecret)
	form.Set("refresh_token", refreshToken)

	return h.post(ctx, "refresh", "/token", form)
}

// post sends one form-encoded exchange to the auth API and decodes the
// token response. Non-2xx responses become *Error (authentication-class);
// transport failures pass through untouched.
func (h *PasswordHandler) post(ctx context.Context, op, path string, form url.Values) (*Token, error) {
	endpoint, err := h.endpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving auth endpoint: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	headers.Set("Accept", "application/json")

	resp, err := h.transport.Do(ctx, &transport.Request{
		Method:  http.MethodPost,
		URL:     endpoint + path,
		Headers: headers,
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return nil, err
	}

	if resp.Status < 200 || resp.Status > 299 {
		return nil, &Error{Op: op, Status: resp.Status, Body: resp.Body}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", op, err)
	}

	tok := tr.toToken()
	if tok.Access == "" {
		return nil, fmt.Errorf("decoding %s response: no access token in body", op)
	}
	return tok, nil
}

// tokenResponse is the wire shape of the token endpoint. Older platform
// versions return the access token under "_TOKEN" instead of "access_token";
// expiry is epoch milliseconds under "expires-at".
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	LegacyToken  string `json:"_TOKEN"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires-at"`
	Subject      string `json:"_IDENTITY"`
	Application  string `json:"_APPLICATION"`
	Organization string `json:"_ORGANIZATION"`
}

func (r tokenResponse) toToken() *Token {
	tok := &Token{
		Access:       r.AccessToken,
		Refresh:      r.RefreshToken,
		Subject:      r.Subject,
		Application:  r.Application,
		Organization: r.Organization,
	}
	if tok.Access == "" {
		tok.Access = r.LegacyToken
	}
	if r.ExpiresAt > 0 {
		tok.ExpiresAt = time.UnixMilli(r.ExpiresAt)
	}
	return tok
}
