// Package schema implements the Schema Bridge (C8): converting MCP
// JSON-Schema tool descriptors into Gemini function declarations and
// maintaining the routing table functions are resolved back through, per
// spec.md §4.8.
package schema

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/mcpintegration/core/internal/toolschema"
)

const maxFunctionNameLen = 64
const maxSegmentLen = 32

var invalidNameChar = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
var repeatedUnderscore = regexp.MustCompile(`_+`)

// route identifies the (server, tool) pair a routed function name maps to.
type route struct {
	Server string
	Tool   string
}

// Bridge owns the functionName -> (server, tool) routing table, persisted
// across conversions so repeat calls for the same pair reuse their name
// and collisions between different pairs are disambiguated, per spec.md
// §4.8.
type Bridge struct {
	mu     sync.Mutex
	routes map[string]route  // functionName -> route
	byPair map[string]string // "<server>\x00<tool>" -> functionName
}

// New creates an empty Bridge.
func New() *Bridge {
	return &Bridge{
		routes: make(map[string]route),
		byPair: make(map[string]string),
	}
}

// Declare builds the FunctionDeclaration for one MCP tool, registering (or
// reusing) its routed function name.
func (b *Bridge) Declare(server, tool, description string, inputSchema []byte) (*genai.FunctionDeclaration, error) {
	node, err := toolschema.Parse(inputSchema)
	if err != nil {
		return nil, fmt.Errorf("schema: parse inputSchema for %s.%s: %w", server, tool, err)
	}

	name := b.functionName(server, tool)
	params := convertNode(node)
	// The root always resolves to an object schema, per spec.md §4.8.
	params.Type = genai.TypeObject

	return &genai.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters:  params,
	}, nil
}

// functionName returns the routed name for (server, tool), constructing
// and registering one if this pair has not been seen before.
func (b *Bridge) functionName(server, tool string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	pairKey := server + "\x00" + tool
	if existing, ok := b.byPair[pairKey]; ok {
		return existing
	}

	base := sanitizeSegment(server) + "_" + sanitizeSegment(tool)
	if len(base) > maxFunctionNameLen {
		base = base[:maxFunctionNameLen]
	}

	name := base
	for i := 1; ; i++ {
		if _, taken := b.routes[name]; !taken {
			break
		}
		suffix := fmt.Sprintf("_%d", i)
		cut := base
		if len(cut)+len(suffix) > maxFunctionNameLen {
			cut = cut[:maxFunctionNameLen-len(suffix)]
		}
		name = cut + suffix
	}

	b.routes[name] = route{Server: server, Tool: tool}
	b.byPair[pairKey] = name
	return name
}

// Resolve looks up (server, tool) for a routed function name. If the name
// was never registered, it falls back to splitting on the first
// underscore, per spec.md §4.8's "Routing" fallback.
func (b *Bridge) Resolve(functionName string) (server, tool string, ok bool) {
	b.mu.Lock()
	r, found := b.routes[functionName]
	b.mu.Unlock()
	if found {
		return r.Server, r.Tool, true
	}

	idx := strings.IndexByte(functionName, '_')
	if idx <= 0 || idx >= len(functionName)-1 {
		return "", "", false
	}
	return functionName[:idx], functionName[idx+1:], true
}

// sanitizeSegment replaces characters outside [A-Za-z0-9_.-] with '_',
// collapses runs of '_', prefixes '_' if the first character is not a
// letter or '_', and caps the result at ~32 chars, per spec.md §4.8.
func sanitizeSegment(s string) string {
	s = invalidNameChar.ReplaceAllString(s, "_")
	s = repeatedUnderscore.ReplaceAllString(s, "_")
	if s == "" {
		s = "_"
	}
	first := rune(s[0])
	if !(first == '_' || (first >= 'A' && first <= 'Z') || (first >= 'a' && first <= 'z')) {
		s = "_" + s
	}
	if len(s) > maxSegmentLen {
		s = s[:maxSegmentLen]
	}
	return s
}

// convertNode walks a toolschema.Node into a genai.Schema, preserving the
// fields spec.md §4.8 enumerates.
func convertNode(n *toolschema.Node) *genai.Schema {
	if n == nil {
		return &genai.Schema{Type: genai.TypeString}
	}

	nullable := n.Nullable
	out := &genai.Schema{
		Description: n.Description,
		Title:       n.Title,
		Format:      n.Format,
		Default:     n.Default,
		Example:     n.Example,
		Nullable:    &nullable,
	}

	switch n.EffectiveType() {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}

	for _, v := range n.Enum {
		out.Enum = append(out.Enum, fmt.Sprintf("%v", v))
	}

	if n.Properties != nil {
		out.Properties = make(map[string]*genai.Schema, n.Properties.Len())
		for pair := n.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key] = convertNode(pair.Value)
		}
		out.PropertyOrdering = n.PropertyOrder()
	}
	out.Required = n.Required

	for _, alt := range n.AnyOf {
		out.AnyOf = append(out.AnyOf, convertNode(alt))
	}
	if n.Items != nil {
		out.Items = convertNode(n.Items)
	}

	out.Minimum = n.Minimum
	out.Maximum = n.Maximum
	if n.MinItems != nil {
		out.MinItems = int64(*n.MinItems)
	}
	if n.MaxItems != nil {
		out.MaxItems = int64(*n.MaxItems)
	}
	if n.MinLength != nil {
		out.MinLength = int64(*n.MinLength)
	}
	if n.MaxLength != nil {
		out.MaxLength = int64(*n.MaxLength)
	}
	if n.MinProperties != nil {
		out.MinProperties = int64(*n.MinProperties)
	}
	if n.MaxProperties != nil {
		out.MaxProperties = int64(*n.MaxProperties)
	}

	return out
}
