// Package api provides version discovery and authenticated access to the
// platform's REST surfaces.
//
// This package provides:
//   - Version discovery against the unauthenticated /api/version document
//   - An authenticated executor with a refresh-and-retry-once 401 policy
//   - Typed wrappers for the graph API (vertex CRUD, gremlin and vertex queries)
//   - Identity (me/account) and application registry wrappers
//
// # Version Discovery
//
// Endpoint paths are never hard-coded. The VersionResolver fetches the
// platform's version document once, caches it for the resolver's lifetime,
// and maps logical API names ("graph", "auth", "events-ws") to concrete
// URLs. Invalidate drops the cache when a platform upgrade moves endpoints.
//
// # Authentication Policy
//
// The Executor injects the current bearer token on every request. On a 401
// it refreshes through the shared token handler and retries exactly once;
// a second 401 is surfaced as ErrUnauthorized rather than looping. All
// other statuses pass through as transport errors untouched.
package api
