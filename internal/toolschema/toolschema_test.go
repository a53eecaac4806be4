package toolschema

import "testing"

func TestParse_PreservesPropertyOrder(t *testing.T) {
	raw := []byte(`{
		"type": "object",
		"properties": {
			"zebra": {"type": "string"},
			"apple": {"type": "integer"},
			"mango": {"type": "boolean"}
		},
		"required": ["zebra"]
	}`)

	n, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	order := n.PropertyOrder()
	want := []string{"zebra", "apple", "mango"}
	if len(order) != len(want) {
		t.Fatalf("expected %d properties, got %v", len(want), order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("position %d: expected %q, got %q", i, name, order[i])
		}
	}

	if !n.IsRequired("zebra") {
		t.Error("expected zebra to be required")
	}
	if n.IsRequired("apple") {
		t.Error("apple must not be required")
	}
}

func TestParse_EmptyRaw(t *testing.T) {
	n, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if n.EffectiveType() != "object" {
		t.Errorf("expected default object type, got %q", n.EffectiveType())
	}
}

func TestEffectiveType_Synthesis(t *testing.T) {
	withProps, _ := Parse([]byte(`{"properties":{"a":{"type":"string"}}}`))
	if got := withProps.EffectiveType(); got != "object" {
		t.Errorf("expected synthesized object type, got %q", got)
	}

	withItems, _ := Parse([]byte(`{"items":{"type":"string"}}`))
	if got := withItems.EffectiveType(); got != "array" {
		t.Errorf("expected synthesized array type, got %q", got)
	}

	bare, _ := Parse([]byte(`{}`))
	if got := bare.EffectiveType(); got != "string" {
		t.Errorf("expected default string type, got %q", got)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Error("expected error for malformed schema bytes")
	}
}

func TestProperty_Lookup(t *testing.T) {
	n, err := Parse([]byte(`{"properties":{"city":{"type":"string","description":"city name"}}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	prop, ok := n.Property("city")
	if !ok {
		t.Fatal("expected city property to be found")
	}
	if prop.Description != "city name" {
		t.Errorf("expected description to round-trip, got %q", prop.Description)
	}
	if _, ok := n.Property("missing"); ok {
		t.Error("expected missing property lookup to fail")
	}
}
