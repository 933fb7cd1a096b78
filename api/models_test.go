package api

import (
	"encoding/json"
	"testing"
	"time"
)

func TestVertex_DecodePreservesUnknownAttributes(t *testing.T) {
	doc := []byte(`{
		"ogit/_id": "ck1234_node",
		"ogit/_type": "ogit/Automation/KnowledgeItem",
		"ogit/_creator": "alice@example.com",
		"ogit/_created-on": 1700000000000,
		"ogit/_modified-on": 1700000300000,
		"ogit/name": "restart service",
		"ogit/Automation/knowledgeItemFormalRepresentation": "ki\nissue\n  kind == \"incident\"",
		"custom/priority": 3
	}`)

	var v Vertex
	if err := json.Unmarshal(doc, &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if v.ID != "ck1234_node" {
		t.Errorf("ID = %q, want ck1234_node", v.ID)
	}
	if v.Type != "ogit/Automation/KnowledgeItem" {
		t.Errorf("Type = %q", v.Type)
	}
	if v.Creator != "alice@example.com" {
		t.Errorf("Creator = %q", v.Creator)
	}
	if want := time.UnixMilli(1700000000000); !v.CreatedOn.Equal(want) {
		t.Errorf("CreatedOn = %v, want %v", v.CreatedOn, want)
	}

	if got := v.Extra["ogit/name"]; got != "restart service" {
		t.Errorf("Extra[ogit/name] = %v", got)
	}
	if _, ok := v.Extra["custom/priority"]; !ok {
		t.Error("custom attribute dropped during decode")
	}
	if _, ok := v.Extra["ogit/_id"]; ok {
		t.Error("typed system attribute duplicated into Extra")
	}
}

func TestVertex_EncodeRestoresSystemAttributes(t *testing.T) {
	v := Vertex{
		ID:        "ck1234_node",
		Type:      "ogit/Comment",
		CreatedOn: time.UnixMilli(1700000000000),
		Extra:     map[string]any{"ogit/content": "looks fine"},
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("re-decode error = %v", err)
	}
	if raw["ogit/_id"] != "ck1234_node" {
		t.Errorf("ogit/_id = %v", raw["ogit/_id"])
	}
	if raw["ogit/_created-on"] != float64(1700000000000) {
		t.Errorf("ogit/_created-on = %v", raw["ogit/_created-on"])
	}
	if raw["ogit/content"] != "looks fine" {
		t.Errorf("ogit/content = %v", raw["ogit/content"])
	}
	if _, ok := raw["ogit/_modified-on"]; ok {
		t.Error("zero modified-on should be omitted")
	}
}

func TestEscapeQueryValue(t *testing.T) {
	got := EscapeQueryValue(`ogit/Automation/KnowledgeItem`)
	if want := `ogit\/Automation\/KnowledgeItem`; got != want {
		t.Errorf("EscapeQueryValue() = %q, want %q", got, want)
	}
}
