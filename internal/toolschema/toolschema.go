// Package toolschema parses the JSON-Schema subset MCP tools describe their
// inputSchema with, per spec.md §3's "Tool descriptor" and §4.8's schema
// conversion rules. It preserves the source document's `properties`
// insertion order, which both the Script Binding Layer (C6) and the
// Command Binding Layer (C7) depend on for positional argument mapping.
package toolschema

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is a JSON-Schema subset covering exactly the vocabulary spec.md §4.8
// enumerates: type, description, title, format, default, example, enum,
// properties, required, anyOf, items, numeric/length bounds, nullable, and
// propertyOrdering. Properties is backed by an OrderedMap so decoding off
// the wire preserves the original key order.
type Node struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Title       string `json:"title,omitempty"`
	Format      string `json:"format,omitempty"`
	Default     any    `json:"default,omitempty"`
	Example     any    `json:"example,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`

	Properties       *orderedmap.OrderedMap[string, *Node] `json:"properties,omitempty"`
	Required         []string                              `json:"required,omitempty"`
	PropertyOrdering []string                              `json:"propertyOrdering,omitempty"`

	AnyOf []*Node `json:"anyOf,omitempty"`
	Items *Node   `json:"items,omitempty"`

	Minimum       *float64 `json:"minimum,omitempty"`
	Maximum       *float64 `json:"maximum,omitempty"`
	MinItems      *int     `json:"minItems,omitempty"`
	MaxItems      *int     `json:"maxItems,omitempty"`
	MinLength     *int     `json:"minLength,omitempty"`
	MaxLength     *int     `json:"maxLength,omitempty"`
	MinProperties *int     `json:"minProperties,omitempty"`
	MaxProperties *int     `json:"maxProperties,omitempty"`
}

// Parse decodes raw MCP inputSchema bytes into a Node. An empty or nil raw
// value yields an empty object Node rather than an error, matching C1's
// "never hard-fail on a malformed fragment" posture — callers that need a
// schema to exist at all should check for a nil Properties map themselves.
func Parse(raw []byte) (*Node, error) {
	if len(raw) == 0 {
		return &Node{Type: "object"}, nil
	}
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("toolschema: parse: %w", err)
	}
	return &n, nil
}

// PropertyOrder returns the property names in the order they were declared
// in the source document, or nil if the schema has no properties.
func (n *Node) PropertyOrder() []string {
	if n == nil || n.Properties == nil {
		return nil
	}
	names := make([]string, 0, n.Properties.Len())
	for pair := n.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Property looks up a named property schema.
func (n *Node) Property(name string) (*Node, bool) {
	if n == nil || n.Properties == nil {
		return nil, false
	}
	return n.Properties.Get(name)
}

// IsRequired reports whether name appears in the schema's required list.
func (n *Node) IsRequired(name string) bool {
	if n == nil {
		return false
	}
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// EffectiveType returns n.Type, synthesizing "object" when Properties is
// set and "array" when Items is set with no explicit type, and defaulting
// to "string" otherwise — per spec.md §4.8's type-synthesis rule.
func (n *Node) EffectiveType() string {
	if n == nil {
		return "string"
	}
	if n.Type != "" {
		return n.Type
	}
	if n.Properties != nil {
		return "object"
	}
	if n.Items != nil {
		return "array"
	}
	return "string"
}
