// Package cache implements the Async Tool Cache (C5): a non-blocking
// "last-known-value with refresh" cache keyed by (server, tool, args), per
// spec.md §4.5.
package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key builds the canonical CacheKey form from spec.md §3:
// "<server>.<tool>(<sorted k=v list>)". Equal (server, tool, args) triples
// must produce equal strings regardless of map iteration order.
func Key(server, tool string, args map[string]any) string {
	pairs := make([]string, 0, len(args))
	for k, v := range args {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(pairs)

	var b strings.Builder
	b.WriteString(server)
	b.WriteByte('.')
	b.WriteString(tool)
	b.WriteByte('(')
	b.WriteString(strings.Join(pairs, ","))
	b.WriteByte(')')
	return b.String()
}
