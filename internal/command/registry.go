// Package command implements the Command Binding Layer (C7): one textual
// command per (server, tool), argument parsing, validation, and RPC
// off-load to the background executor, per spec.md §4.7. It implements
// registry.ServerBinder so the Server Registry (C4) can fan connect and
// disconnect events into it.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mcpintegration/core/internal/hostapi"
	"github.com/mcpintegration/core/internal/mcpclient"
	"github.com/mcpintegration/core/internal/registry"
	"github.com/mcpintegration/core/internal/toolschema"
)

// Registry owns every registered "<server>:<tool>" command and rebuilds
// the host's dispatcher tree in full on every change, per spec.md §4.7's
// "Registry coherence" (never patched, always rebuilt).
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	reg            *registry.Registry
	dispatcher     hostapi.CommandDispatcher
	executor       hostapi.Executor
	hostDispatcher hostapi.Dispatcher
	output         hostapi.OutputSink
}

// NewRegistry creates a command Registry that enqueues tool calls through
// reg (C4/C3). Collaborators are wired with the Set* methods; each is
// nil-safe (work runs inline instead of being offloaded/dispatched).
func NewRegistry(reg *registry.Registry) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		reg:     reg,
	}
}

func (r *Registry) SetDispatcher(d hostapi.CommandDispatcher) {
	r.mu.Lock()
	r.dispatcher = d
	r.mu.Unlock()
}

func (r *Registry) SetExecutor(e hostapi.Executor) {
	r.mu.Lock()
	r.executor = e
	r.mu.Unlock()
}

func (r *Registry) SetHostDispatcher(d hostapi.Dispatcher) {
	r.mu.Lock()
	r.hostDispatcher = d
	r.mu.Unlock()
}

func (r *Registry) SetOutput(o hostapi.OutputSink) {
	r.mu.Lock()
	r.output = o
	r.mu.Unlock()
}

// BindServer registers one command per tool for server, then rebuilds the
// full dispatcher tree.
func (r *Registry) BindServer(server string, tools []mcpclient.ToolInfo) {
	r.mu.Lock()
	for _, tool := range tools {
		schema, err := toolschema.Parse(tool.InputSchema)
		if err != nil {
			schema = &toolschema.Node{Type: "object"}
		}
		name := commandName(server, tool.Name)
		r.entries[name] = &entry{server: server, tool: tool.Name, schema: schema, description: tool.Description}
	}
	r.mu.Unlock()
	r.rebuild()
}

// UnbindServer removes every command whose name starts with "<server>:",
// then rebuilds the tree.
func (r *Registry) UnbindServer(server string) {
	prefix := server + ":"
	r.mu.Lock()
	for name := range r.entries {
		if strings.HasPrefix(name, prefix) {
			delete(r.entries, name)
		}
	}
	r.mu.Unlock()
	r.rebuild()
}

// rebuild snapshots the current commands, sorted by name, and hands the
// full list to the host command dispatcher.
func (r *Registry) rebuild() {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]hostapi.CommandSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, r.buildSpec(name, r.entries[name]))
	}
	dispatcher := r.dispatcher
	r.mu.Unlock()

	if dispatcher != nil {
		dispatcher.Rebuild(context.Background(), specs)
	}
}

func (r *Registry) buildSpec(name string, e *entry) hostapi.CommandSpec {
	return hostapi.CommandSpec{
		Name:        name,
		Description: e.description,
		Usage:       usage(name, e.schema),
		Run: func(ctx context.Context, rawArgs string) string {
			return r.run(ctx, name, e, rawArgs)
		},
		Suggest: func(prefix string) []string {
			return suggestParams(e.schema, prefix)
		},
	}
}

// run validates and dispatches one command invocation, per spec.md §4.7.
// Validation failures are reported synchronously; a successful parse is
// off-loaded to the background executor and its result delivered later
// through the output sink, so run itself returns "" in that case.
func (r *Registry) run(ctx context.Context, name string, e *entry, rawArgs string) string {
	if strings.TrimSpace(rawArgs) == "help" {
		return usage(name, e.schema)
	}

	args, err := ParseArguments(rawArgs, e.schema)
	if err != nil {
		return fmt.Sprintf("Tool Error: %v", err)
	}
	if missing := missingRequired(args, e.schema); len(missing) > 0 {
		return fmt.Sprintf("Missing required parameters. Usage: %s", paramList(e.schema))
	}

	r.mu.Lock()
	executor, hostDispatcher, output := r.executor, r.hostDispatcher, r.output
	r.mu.Unlock()

	work := func() {
		text := r.callAndRender(e, args)
		deliver := func() {
			if output != nil {
				output.Write(name, text)
			}
		}
		if hostDispatcher != nil {
			hostDispatcher.Post(deliver)
			return
		}
		deliver()
	}

	if executor != nil {
		executor.Submit(work)
		return ""
	}
	work()
	return ""
}

func (r *Registry) callAndRender(e *entry, args map[string]any) string {
	req, err := r.reg.Enqueue(e.server, e.tool, args)
	if err != nil {
		return "Tool Error: " + err.Error()
	}
	res := req.Wait()
	if res.Err != nil {
		return "Tool Error: " + res.Err.Error()
	}
	return renderOutput(res.Text)
}
