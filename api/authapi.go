package api

import (
	"context"
)

// AccountInfo describes the identity behind the current token, as reported
// by the auth API's account endpoint.
type AccountInfo struct {
	Account Vertex   `json:"account"`
	Avatar  string   `json:"avatar,omitempty"`
	Profile *Vertex  `json:"profile,omitempty"`
	Teams   []Vertex `json:"teams,omitempty"`
}

// AuthClient wraps the identity side of the auth API. Token acquisition
// itself lives in the auth package; this client covers the authenticated
// read endpoints.
type AuthClient struct {
	exec    *Executor
	resolve *VersionResolver
}

// NewAuthClient builds an auth API client on top of an authenticated
// executor.
func NewAuthClient(exec *Executor, resolve *VersionResolver) *AuthClient {
	return &AuthClient{exec: exec, resolve: resolve}
}

// Me returns the account behind the current token.
func (a *AuthClient) Me(ctx context.Context) (*AccountInfo, error) {
	base, err := a.resolve.Resolve(ctx, "auth")
	if err != nil {
		return nil, err
	}

	var info AccountInfo
	if err := a.exec.ExecuteJSON(ctx, "GET", base+"/me/account", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
