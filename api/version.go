package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/nerrad567/hirograph/transport"
)

// VersionEntry describes one API listed by the platform's version document.
type VersionEntry struct {
	Endpoint  string `json:"endpoint"`
	Version   string `json:"version"`
	Docs      string `json:"docs,omitempty"`
	Support   string `json:"support,omitempty"`
	Protocols string `json:"protocols,omitempty"`
	Lifecycle string `json:"lifecycle,omitempty"`
}

// VersionResolver discovers versioned base paths per API name from the
// platform's /api/version document and caches the map.
//
// Discovery is unauthenticated: it must work before any token exists, since
// the auth API's own endpoint comes out of this map.
//
// Thread Safety:
//   - The map is populated at most once under a lock; concurrent resolvers
//     during first population block until the single fetch completes, then
//     read the cached map.
type VersionResolver struct {
	transport *transport.Client
	rootURL   string

	mu      sync.Mutex
	entries map[string]VersionEntry
}

// NewVersionResolver creates a resolver for the given platform root URL.
func NewVersionResolver(tc *transport.Client, rootURL string) *VersionResolver {
	return &VersionResolver{
		transport: tc,
		rootURL:   strings.TrimRight(rootURL, "/"),
	}
}

// Resolve returns the absolute base URL for an API name, fetching the
// version document on first use.
//
// Fails with ErrUnknownAPI when the name is absent after a successful
// fetch. Fetch failures propagate as transport errors and are not retried
// here; callers decide.
func (r *VersionResolver) Resolve(ctx context.Context, apiName string) (string, error) {
	entry, err := r.Entry(ctx, apiName)
	if err != nil {
		return "", err
	}
	return r.rootURL + entry.Endpoint, nil
}

// ResolveWebSocket returns the WebSocket URL for an API name, converting the
// root's scheme to ws/wss.
func (r *VersionResolver) ResolveWebSocket(ctx context.Context, apiName string) (string, error) {
	base, err := r.Resolve(ctx, apiName)
	if err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://"), nil
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://"), nil
	default:
		return base, nil
	}
}

// Entry returns the full version entry for an API name.
func (r *VersionResolver) Entry(ctx context.Context, apiName string) (VersionEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		entries, err := r.fetch(ctx)
		if err != nil {
			return VersionEntry{}, err
		}
		r.entries = entries
	}

	entry, ok := r.entries[apiName]
	if !ok {
		return VersionEntry{}, fmt.Errorf("%w: %q", ErrUnknownAPI, apiName)
	}
	return entry, nil
}

// EndpointFunc adapts one API name into the endpoint-resolver signature the
// auth package consumes, keeping discovery logic out of the token handlers.
func (r *VersionResolver) EndpointFunc(apiName string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return r.Resolve(ctx, apiName)
	}
}

// Invalidate drops the cached map; the next Resolve refetches.
func (r *VersionResolver) Invalidate() {
	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()
}

// fetch retrieves and parses the version document. Called with mu held:
// holding the lock across the fetch is what makes first population happen
// exactly once.
func (r *VersionResolver) fetch(ctx context.Context) (map[string]VersionEntry, error) {
	resp, err := r.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    r.rootURL + "/api/version",
	})
	if err != nil {
		return nil, fmt.Errorf("fetching version document: %w", err)
	}
	if resp.Status != http.StatusOK {
		return nil, &transport.HTTPError{
			Status: resp.Status,
			Body:   resp.Body,
			Method: http.MethodGet,
			URL:    r.rootURL + "/api/version",
		}
	}

	var entries map[string]VersionEntry
	if err := json.Unmarshal(resp.Body, &entries); err != nil {
		return nil, fmt.Errorf("parsing version document: %w", err)
	}
	return entries, nil
}
