package command

import (
	"strings"

	"github.com/mcpintegration/core/internal/toolschema"
)

// suggestParams completes parameter names (as "<name>=") filtered by the
// remaining input prefix, case-insensitive, per spec.md §4.7.
func suggestParams(schema *toolschema.Node, prefix string) []string {
	lowerPrefix := strings.ToLower(prefix)
	var suggestions []string
	for _, name := range schema.PropertyOrder() {
		if strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			suggestions = append(suggestions, name+"=")
		}
	}
	return suggestions
}
