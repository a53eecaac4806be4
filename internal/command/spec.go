package command

import (
	"fmt"
	"strings"

	"github.com/mcpintegration/core/internal/toolschema"
)

// entry is one registered "<server>:<tool>" command's bound state.
type entry struct {
	server      string
	tool        string
	schema      *toolschema.Node
	description string
}

func commandName(server, tool string) string {
	return server + ":" + tool
}

// paramList renders `<req:type>` for required and `[opt:type]` for optional
// properties, in properties order — the bare parameter list spec.md §4.7
// defines as "the usage string", with no command name prepended.
func paramList(schema *toolschema.Node) string {
	var parts []string
	for _, propName := range schema.PropertyOrder() {
		prop, _ := schema.Property(propName)
		t := prop.EffectiveType()
		if schema.IsRequired(propName) {
			parts = append(parts, fmt.Sprintf("<%s:%s>", propName, t))
		} else {
			parts = append(parts, fmt.Sprintf("[%s:%s]", propName, t))
		}
	}
	return strings.Join(parts, " ")
}

// usage renders the "help" response: the command name followed by its
// param list.
func usage(name string, schema *toolschema.Node) string {
	return fmt.Sprintf("%s %s", name, paramList(schema))
}

// missingRequired returns the required property names absent from args, in
// properties order.
func missingRequired(args map[string]any, schema *toolschema.Node) []string {
	var missing []string
	for _, name := range schema.PropertyOrder() {
		if !schema.IsRequired(name) {
			continue
		}
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
