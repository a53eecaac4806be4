// Package script implements the Script Binding Layer (C6): it publishes
// one namespace per connected MCP server into the host evaluator's global
// symbol table, with each tool exposed as a callable that never blocks on
// RPC, per spec.md §4.6.
package script

import (
	"github.com/mcpintegration/core/internal/cache"
	"github.com/mcpintegration/core/internal/hostapi"
	"github.com/mcpintegration/core/internal/mcpclient"
	"github.com/mcpintegration/core/internal/registry"
	"github.com/mcpintegration/core/internal/toolschema"
)

// Binder fans registry connect/disconnect events into evaluator bindings.
// It implements registry.ServerBinder.
type Binder struct {
	registry  *registry.Registry
	cache     *cache.Cache
	evaluator hostapi.Evaluator
}

// NewBinder creates a Binder wired to the registry it reads tool snapshots
// and enqueues calls through, the cache reads are served from, and the
// evaluator namespaces are installed into.
func NewBinder(reg *registry.Registry, c *cache.Cache, evaluator hostapi.Evaluator) *Binder {
	return &Binder{registry: reg, cache: c, evaluator: evaluator}
}

// BindServer installs namespace server as a set of callables, one per tool,
// per spec.md §4.6.
func (b *Binder) BindServer(server string, tools []mcpclient.ToolInfo) {
	if b.evaluator == nil {
		return
	}
	functions := make(map[string]hostapi.Function, len(tools))
	for _, tool := range tools {
		functions[tool.Name] = b.makeFunction(server, tool)
	}
	b.evaluator.Bind(server, functions)
}

// UnbindServer removes server's namespace entirely.
func (b *Binder) UnbindServer(server string) {
	if b.evaluator == nil {
		return
	}
	b.evaluator.Unbind(server)
}

// makeFunction builds the callable for one (server, tool) pair, per spec.md
// §4.6 steps 1-4.
func (b *Binder) makeFunction(server string, tool mcpclient.ToolInfo) hostapi.Function {
	schema, err := toolschema.Parse(tool.InputSchema)
	paramNames := schema.PropertyOrder()
	if err != nil {
		paramNames = nil
	}

	return func(stackArgs []any) string {
		if !b.registry.Connected(server) {
			return "Error: Server disconnected"
		}

		args := positionalToArgs(stackArgs, paramNames)

		return b.cache.Read(server, tool.Name, args, func() (string, error) {
			req, err := b.registry.Enqueue(server, tool.Name, args)
			if err != nil {
				return "", err
			}
			res := req.Wait()
			return res.Text, res.Err
		})
	}
}
