// Package hostapi names the external collaborators the MCP Integration Core
// treats as out-of-scope per spec.md §1: the host GUI, the persistent
// tag/blob store, the host-provided evaluator, the host command-dispatcher
// framework, and the host-provided background executor. The core depends
// only on these small interfaces; a concrete host wires a real
// implementation (or leaves it nil, in which case operations run inline —
// see spec.md §5).
package hostapi

import "context"

// Dispatcher marshals a function onto the host's single mutation thread
// (spec.md §5's "dispatch thread"). Script-namespace and command-dispatcher
// registration/unregistration are posted here so that they never race with
// the evaluator or the command dispatcher reading concurrently.
//
// A nil Dispatcher is valid: callers run fn() inline instead of posting it.
type Dispatcher interface {
	Post(fn func())
}

// Executor runs a long-lived task on the host's background executor
// (spec.md §5's "background executor"), used for LLM calls and command RPC
// offloads. Any number of tasks may run concurrently.
//
// A nil Executor is valid: callers run fn() inline instead of spawning it.
type Executor interface {
	Submit(fn func())
}

// Function is a single callable exposed to the evaluator by the Script
// Binding Layer (C6). args are the evaluator-native values in reverse stack
// order; the Function maps them to parameter names and converts them to
// JSON values per the table in spec.md §4.6 itself. It returns the rendered
// string the evaluator should see (never blocks on RPC — see cache.Cache.Read).
type Function func(args []any) string

// Evaluator is the host's expression engine (spec.md glossary). C6 binds
// one namespace per connected MCP server into it.
type Evaluator interface {
	// Bind installs namespace.name as a callable for every tool of a
	// newly connected server. Must be safe to call from the Dispatcher.
	Bind(namespace string, functions map[string]Function)
	// Unbind removes the namespace entirely (on disconnect).
	Unbind(namespace string)
}

// CommandDispatcher is the host's textual command tree (spec.md glossary).
// C7 always rebuilds the full tree rather than patching it, per spec.md
// §4.7's "Registry coherence".
type CommandDispatcher interface {
	Rebuild(ctx context.Context, commands []CommandSpec)
}

// OutputSink is a command's output channel (spec.md §4.7): where C7 writes
// the RPC result once the background executor finishes, since execution is
// offloaded and the result arrives after Run has already returned.
type OutputSink interface {
	Write(command, text string)
}

// CommandSpec is one registered command, as rebuilt into the host dispatcher
// tree on every registry change.
type CommandSpec struct {
	Name        string // "<server>:<tool>"
	Description string
	Usage       string
	Run         func(ctx context.Context, rawArgs string) string
	Suggest     func(prefix string) []string
}
