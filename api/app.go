package api

import "context"

// AppInfo is one installed application as listed by the app API.
type AppInfo struct {
	ID          string `json:"ogit/_id"`
	Name        string `json:"ogit/name,omitempty"`
	Description string `json:"ogit/description,omitempty"`
}

// AppClient wraps the platform's application registry API.
type AppClient struct {
	exec    *Executor
	resolve *VersionResolver
}

// NewAppClient builds an app API client on top of an authenticated executor.
func NewAppClient(exec *Executor, resolve *VersionResolver) *AppClient {
	return &AppClient{exec: exec, resolve: resolve}
}

// ListApps returns the applications visible to the current identity.
func (a *AppClient) ListApps(ctx context.Context) ([]AppInfo, error) {
	base, err := a.resolve.Resolve(ctx, "app")
	if err != nil {
		return nil, err
	}

	var list struct {
		Items []AppInfo `json:"items"`
	}
	if err := a.exec.ExecuteJSON(ctx, "GET", base+"/desktop", nil, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}
