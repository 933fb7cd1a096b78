package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GraphClient wraps the platform's graph API: vertex CRUD plus the two
// query variants (gremlin traversals and vertex attribute queries).
//
// Endpoints are resolved through the version resolver on each call, so a
// client built before discovery completes still works once the platform
// is reachable.
type GraphClient struct {
	exec    *Executor
	resolve *VersionResolver
}

// NewGraphClient builds a graph client on top of an authenticated executor.
func NewGraphClient(exec *Executor, resolve *VersionResolver) *GraphClient {
	return &GraphClient{exec: exec, resolve: resolve}
}

// GetVertex fetches a single vertex by id.
func (g *GraphClient) GetVertex(ctx context.Context, id string) (*Vertex, error) {
	base, err := g.resolve.Resolve(ctx, "graph")
	if err != nil {
		return nil, err
	}

	var v Vertex
	if err := g.exec.ExecuteJSON(ctx, "GET", base+"/"+url.PathEscape(id), nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVertex creates a vertex of the given ontology type. Attributes is
// the flat attribute document; the platform assigns the id.
func (g *GraphClient) CreateVertex(ctx context.Context, vertexType string, attributes map[string]any) (*Vertex, error) {
	base, err := g.resolve.Resolve(ctx, "graph")
	if err != nil {
		return nil, err
	}

	var v Vertex
	if err := g.exec.ExecuteJSON(ctx, "POST", base+"/new/"+url.PathEscape(vertexType), nil, attributes, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVertex applies a partial attribute update and returns the updated
// vertex.
func (g *GraphClient) UpdateVertex(ctx context.Context, id string, attributes map[string]any) (*Vertex, error) {
	base, err := g.resolve.Resolve(ctx, "graph")
	if err != nil {
		return nil, err
	}

	var v Vertex
	if err := g.exec.ExecuteJSON(ctx, "POST", base+"/"+url.PathEscape(id), nil, attributes, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVertex removes a vertex by id.
func (g *GraphClient) DeleteVertex(ctx context.Context, id string) error {
	base, err := g.resolve.Resolve(ctx, "graph")
	if err != nil {
		return err
	}
	return g.exec.ExecuteJSON(ctx, "DELETE", base+"/"+url.PathEscape(id), nil, nil, nil)
}

// QueryGremlin runs a gremlin traversal rooted at the given vertex id.
func (g *GraphClient) QueryGremlin(ctx context.Context, rootID, query string) ([]Vertex, error) {
	return g.query(ctx, "gremlin", map[string]any{
		"root":  rootID,
		"query": query,
	})
}

// QueryVertices runs an attribute query against the vertex index. The query
// string uses the platform's lucene-style syntax, for example
// `+ogit\/_type:"ogit/Automation/KnowledgeItem"`.
func (g *GraphClient) QueryVertices(ctx context.Context, query string, limit, offset int) ([]Vertex, error) {
	body := map[string]any{"query": query}
	if limit > 0 {
		body["limit"] = limit
	}
	if offset > 0 {
		body["offset"] = offset
	}
	return g.query(ctx, "vertices", body)
}

func (g *GraphClient) query(ctx context.Context, variant string, body map[string]any) ([]Vertex, error) {
	base, err := g.resolve.Resolve(ctx, "graph")
	if err != nil {
		return nil, err
	}

	var list VertexList
	if err := g.exec.ExecuteJSON(ctx, "POST", base+"/query/"+variant, nil, body, &list); err != nil {
		return nil, fmt.Errorf("%s query: %w", variant, err)
	}
	return list.Items, nil
}

// EscapeQueryValue escapes a value for use inside an attribute query, so
// ontology names with slashes can be matched literally.
func EscapeQueryValue(value string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`/`, `\/`,
		`"`, `\"`,
	)
	return r.Replace(value)
}
