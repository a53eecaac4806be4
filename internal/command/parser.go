package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/mcpintegration/core/internal/toolschema"
)

// ParseArguments detects and applies one of the three argument styles from
// spec.md §4.7, given the tool's schema for positional ordering and
// per-property type coercion.
func ParseArguments(raw string, schema *toolschema.Node) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return parseJSONLiteral(trimmed)
	}

	tokens := tokenize(trimmed)
	if hasUnquotedEquals(tokens) {
		return parseNamed(tokens, schema)
	}
	return parsePositional(tokens, schema)
}

func parseJSONLiteral(trimmed string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, fmt.Errorf("command: invalid JSON literal: %w", err)
	}
	if obj, ok := v.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"value": v}, nil
}

func hasUnquotedEquals(tokens []string) bool {
	for _, tok := range tokens {
		// The '=' counts only when it comes before any quote character.
		if idx := strings.IndexAny(tok, `="'`); idx > 0 && tok[idx] == '=' {
			return true
		}
	}
	return false
}

func parseNamed(tokens []string, schema *toolschema.Node) (map[string]any, error) {
	args := make(map[string]any, len(tokens))
	for _, tok := range tokens {
		idx := strings.IndexAny(tok, `="'`)
		if idx <= 0 || tok[idx] != '=' {
			continue // positional leftover token among named ones; ignored
		}
		key := unquote(tok[:idx])
		valueRaw := unquote(tok[idx+1:])
		propType := "string"
		if schema != nil {
			if prop, ok := schema.Property(key); ok {
				propType = prop.EffectiveType()
			}
		}
		coerced, err := coerce(valueRaw, propType)
		if err != nil {
			return nil, fmt.Errorf("command: argument %q: %w", key, err)
		}
		args[key] = coerced
	}
	return args, nil
}

func parsePositional(tokens []string, schema *toolschema.Node) (map[string]any, error) {
	var order []string
	if schema != nil {
		order = schema.PropertyOrder()
	}

	args := make(map[string]any, len(tokens))
	for i, tok := range tokens {
		if i >= len(order) {
			break
		}
		name := order[i]
		propType := "string"
		if prop, ok := schema.Property(name); ok {
			propType = prop.EffectiveType()
		}
		coerced, err := coerce(unquote(tok), propType)
		if err != nil {
			return nil, fmt.Errorf("command: argument %q: %w", name, err)
		}
		args[name] = coerced
	}
	return args, nil
}

// coerce converts a raw token to propType's Go representation, per spec.md
// §4.7: decimal and 0x hex integers, case-insensitive boolean spellings,
// and JSON re-parsing for array/object.
func coerce(raw, propType string) (any, error) {
	switch propType {
	case "integer":
		if n, ok := parseHexOrDecimalInt(raw); ok {
			return n, nil
		}
		return cast.ToInt64E(raw)
	case "number":
		if n, ok := parseHexOrDecimalInt(raw); ok {
			return float64(n), nil
		}
		return cast.ToFloat64E(raw)
	case "boolean":
		return parseBoolSpelling(raw)
	case "array", "object":
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("re-parse %q as JSON: %w", raw, err)
		}
		return v, nil
	default:
		return raw, nil
	}
}

func parseHexOrDecimalInt(raw string) (int64, bool) {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "0x") {
		n, err := strconv.ParseInt(lower[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseBoolSpelling(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a recognized boolean spelling: %q", raw)
	}
}

// tokenize splits rawArgs on top-level whitespace, treating whitespace
// inside double quotes, single quotes, or balanced {}/[]/() as part of the
// token, and honoring backslash escapes, per spec.md §4.7.
func tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder

	var quote rune // 0, '"', or '\''
	depth := 0
	escaped := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range raw {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			escaped = true
			cur.WriteRune(r)
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == '{' || r == '[' || r == '(':
			depth++
			cur.WriteRune(r)
		case r == '}' || r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case depth > 0:
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// unquote strips one layer of matching surrounding quotes, collapsing the
// backslash escapes tokenize left in place.
func unquote(tok string) string {
	if len(tok) >= 2 {
		if (tok[0] == '"' && tok[len(tok)-1] == '"') || (tok[0] == '\'' && tok[len(tok)-1] == '\'') {
			inner := tok[1 : len(tok)-1]
			return strings.ReplaceAll(inner, `\`+string(tok[0]), string(tok[0]))
		}
	}
	return strings.ReplaceAll(tok, `\`, "")
}
