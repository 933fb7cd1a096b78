package api

import (
	"encoding/json"
	"time"
)

// Vertex is one graph node as returned by the graph API.
//
// The platform's vertex attributes are open-ended: beyond the well-known
// system attributes, every ontology adds its own keys. The known fields are
// typed; everything else lands verbatim in Extra so marshalling a decoded
// vertex reproduces the original document.
type Vertex struct {
	ID         string
	Type       string
	Creator    string
	CreatedOn  time.Time
	ModifiedOn time.Time

	// Extra holds all attributes not covered by the typed fields.
	Extra map[string]any
}

// System attribute keys used by the platform's ontology.
const (
	attrID         = "ogit/_id"
	attrType       = "ogit/_type"
	attrCreator    = "ogit/_creator"
	attrCreatedOn  = "ogit/_created-on"
	attrModifiedOn = "ogit/_modified-on"
)

// UnmarshalJSON decodes a vertex document, folding unknown keys into Extra.
func (v *Vertex) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = Vertex{Extra: make(map[string]any)}
	for key, value := range raw {
		switch key {
		case attrID:
			v.ID, _ = value.(string)
		case attrType:
			v.Type, _ = value.(string)
		case attrCreator:
			v.Creator, _ = value.(string)
		case attrCreatedOn:
			v.CreatedOn = epochMillis(value)
		case attrModifiedOn:
			v.ModifiedOn = epochMillis(value)
		default:
			v.Extra[key] = value
		}
	}
	return nil
}

// MarshalJSON re-emits the vertex as a flat attribute document.
func (v Vertex) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(v.Extra)+5)
	for key, value := range v.Extra {
		raw[key] = value
	}
	if v.ID != "" {
		raw[attrID] = v.ID
	}
	if v.Type != "" {
		raw[attrType] = v.Type
	}
	if v.Creator != "" {
		raw[attrCreator] = v.Creator
	}
	if !v.CreatedOn.IsZero() {
		raw[attrCreatedOn] = v.CreatedOn.UnixMilli()
	}
	if !v.ModifiedOn.IsZero() {
		raw[attrModifiedOn] = v.ModifiedOn.UnixMilli()
	}
	return json.Marshal(raw)
}

// epochMillis converts a JSON number (epoch milliseconds) to a time.
// Non-numeric values yield the zero time.
func epochMillis(value any) time.Time {
	f, ok := value.(float64)
	if !ok || f <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(f))
}

// VertexList is the wire shape of list responses from the graph API.
type VertexList struct {
	Items []Vertex `json:"items"`
}
