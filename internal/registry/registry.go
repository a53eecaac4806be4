// Package registry implements the Server Registry (C4): it owns every
// server's config and live connection, orchestrates connect/disconnect, and
// fans registration events out to the script binding layer (C6), the
// command binding layer (C7), and the async tool cache (C5), per
// spec.md §4.4.
package registry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/hostapi"
	"github.com/mcpintegration/core/internal/mcperr"
	"github.com/mcpintegration/core/internal/mcpclient"
	"github.com/mcpintegration/core/internal/queue"
)

// reconnectCooldown is the minimum gap enforced between consecutive connect
// attempts for the same server, per spec.md §4.4.
const reconnectCooldown = 5 * time.Second

// ServerBinder is the event sink C4 fans registration/deregistration events
// out to. Both the Script Binding Layer (C6) and the Command Binding Layer
// (C7) implement this with their own namespace/command-tree semantics.
type ServerBinder interface {
	BindServer(name string, tools []mcpclient.ToolInfo)
	UnbindServer(name string)
}

// CacheEvictor purges cache entries on server disconnect, per spec.md §4.5's
// "<server>." prefix eviction. Implemented by the Async Tool Cache (C5).
type CacheEvictor interface {
	EvictPrefix(prefix string)
}

// connection is the live state for one server, mirroring spec.md §3's
// Connection: config, transport handle, frozen tool snapshot, connected
// flag, and last-attempt timestamp for the reconnect cooldown.
type connection struct {
	cfg                config.ServerConfig
	client             *mcpclient.Client
	queue              *queue.Queue
	tools              []mcpclient.ToolInfo
	connected          bool
	lastAttemptMonotic time.Time
}

// Registry owns the configs/connections maps and the optional collaborators
// a connect/disconnect fans events out to. Collaborators default to nil,
// which is valid: events are simply not fanned out (mirrors hostapi's
// nil-is-a-no-op convention).
type Registry struct {
	mu          sync.Mutex
	configs     map[string]config.ServerConfig
	conns       map[string]*connection
	scriptSink  ServerBinder
	commandSink ServerBinder
	cache       CacheEvictor
	dispatcher  hostapi.Dispatcher
}

// New creates an empty Registry. Collaborators are wired with the Set*
// methods before the first Connect call.
func New() *Registry {
	return &Registry{
		configs: make(map[string]config.ServerConfig),
		conns:   make(map[string]*connection),
	}
}

// SetScriptSink wires the Script Binding Layer (C6) as a registration
// event sink.
func (r *Registry) SetScriptSink(s ServerBinder) {
	r.mu.Lock()
	r.scriptSink = s
	r.mu.Unlock()
}

// SetCommandSink wires the Command Binding Layer (C7) as a registration
// event sink.
func (r *Registry) SetCommandSink(s ServerBinder) {
	r.mu.Lock()
	r.commandSink = s
	r.mu.Unlock()
}

// SetCache wires the Async Tool Cache (C5) so disconnect can evict its
// per-server entries.
func (r *Registry) SetCache(c CacheEvictor) {
	r.mu.Lock()
	r.cache = c
	r.mu.Unlock()
}

// SetDispatcher wires the host dispatch thread (spec.md §5) that
// registration/deregistration events are posted through. A nil dispatcher
// runs events inline.
func (r *Registry) SetDispatcher(d hostapi.Dispatcher) {
	r.mu.Lock()
	r.dispatcher = d
	r.mu.Unlock()
}

// Add registers a new server config without connecting it.
func (r *Registry) Add(cfg config.ServerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.configs[cfg.Name]; exists {
		return fmt.Errorf("registry: server %q already exists", cfg.Name)
	}
	r.configs[cfg.Name] = cfg
	return nil
}

// Remove disconnects (if connected) and deletes a server's config.
func (r *Registry) Remove(name string) error {
	if err := r.Disconnect(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.configs[name]; !exists {
		return fmt.Errorf("registry: server %q not found", name)
	}
	delete(r.configs, name)
	return nil
}

// Update replaces a server's config, per spec.md §4.4's update semantics:
// if the name changes the new name must be free; any active connection for
// oldName is torn down first; the old config is removed atomically before
// the new one is inserted. Even an unchanged name tears down an active
// connection, since transport-affecting fields may have changed.
func (r *Registry) Update(oldName string, newCfg config.ServerConfig) error {
	if err := newCfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.configs[oldName]; !exists {
		r.mu.Unlock()
		return fmt.Errorf("registry: server %q not found", oldName)
	}
	if newCfg.Name != oldName {
		if _, taken := r.configs[newCfg.Name]; taken {
			r.mu.Unlock()
			return fmt.Errorf("registry: server %q already exists", newCfg.Name)
		}
	}
	r.mu.Unlock()

	if err := r.Disconnect(oldName); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.configs, oldName)
	r.configs[newCfg.Name] = newCfg
	r.mu.Unlock()
	return nil
}

// Connect establishes a connection for name, idempotent when already
// connected, subject to the §4.4 5s reconnect cooldown. On success it fans
// out registration events to the script and command sinks.
func (r *Registry) Connect(ctx context.Context, name string) error {
	r.mu.Lock()
	cfg, ok := r.configs[name]
	if !ok {
		r.mu.Unlock()
		return mcperr.New(mcperr.KindInvalidConfig, fmt.Sprintf("registry: server %q not found", name), nil)
	}
	if c, exists := r.conns[name]; exists {
		if c.connected {
			r.mu.Unlock()
			return nil // idempotent
		}
		if !c.lastAttemptMonotic.IsZero() && time.Since(c.lastAttemptMonotic) < reconnectCooldown {
			r.mu.Unlock()
			return mcperr.New(mcperr.KindTransportError,
				fmt.Sprintf("registry: server %q: reconnect attempted before cooldown elapsed", name), nil)
		}
	}
	r.mu.Unlock()

	cli := mcpclient.NewClient(cfg)
	if err := cli.Connect(ctx); err != nil {
		r.mu.Lock()
		r.conns[name] = &connection{cfg: cfg, lastAttemptMonotic: time.Now()}
		r.mu.Unlock()
		return err
	}

	tools, err := cli.ListTools(ctx)
	if err != nil {
		_ = cli.Close()
		r.mu.Lock()
		r.conns[name] = &connection{cfg: cfg, lastAttemptMonotic: time.Now()}
		r.mu.Unlock()
		return err
	}

	q := queue.New(func(ctx context.Context, toolName string, args map[string]any) (string, error) {
		return cli.CallTool(ctx, toolName, args)
	})

	conn := &connection{
		cfg:                cfg,
		client:             cli,
		queue:              q,
		tools:              tools,
		connected:          true,
		lastAttemptMonotic: time.Now(),
	}

	r.mu.Lock()
	r.conns[name] = conn
	scriptSink, commandSink, dispatcher := r.scriptSink, r.commandSink, r.dispatcher
	r.mu.Unlock()

	r.postBind(dispatcher, scriptSink, commandSink, name, tools)
	log.Printf("[registry] connected %q (%d tool(s))", name, len(tools))
	return nil
}

// postBind fans the registration event out to both sinks, posted through
// the dispatcher so it never races with the evaluator or command
// dispatcher reading concurrently (spec.md §4.4/§5).
func (r *Registry) postBind(dispatcher hostapi.Dispatcher, scriptSink, commandSink ServerBinder, name string, tools []mcpclient.ToolInfo) {
	fn := func() {
		if scriptSink != nil {
			scriptSink.BindServer(name, tools)
		}
		if commandSink != nil {
			commandSink.BindServer(name, tools)
		}
	}
	if dispatcher != nil {
		dispatcher.Post(fn)
		return
	}
	fn()
}

func (r *Registry) postUnbind(dispatcher hostapi.Dispatcher, scriptSink, commandSink ServerBinder, name string) {
	fn := func() {
		if scriptSink != nil {
			scriptSink.UnbindServer(name)
		}
		if commandSink != nil {
			commandSink.UnbindServer(name)
		}
	}
	if dispatcher != nil {
		dispatcher.Post(fn)
		return
	}
	fn()
}

// Disconnect tears down a server's connection, idempotent and always safe.
// On success it fans the inverse events out and purges any C5 cache entries
// whose key starts with "<name>.".
func (r *Registry) Disconnect(name string) error {
	r.mu.Lock()
	conn, exists := r.conns[name]
	if !exists || !conn.connected {
		r.mu.Unlock()
		return nil
	}
	// Keep a disconnected record so the reconnect cooldown still sees the
	// last attempt time.
	r.conns[name] = &connection{cfg: conn.cfg, lastAttemptMonotic: conn.lastAttemptMonotic}
	scriptSink, commandSink, dispatcher, cache := r.scriptSink, r.commandSink, r.dispatcher, r.cache
	r.mu.Unlock()

	conn.queue.Shutdown()
	if err := conn.client.Close(); err != nil {
		log.Printf("[registry] close error for %q: %v", name, err)
	}

	r.postUnbind(dispatcher, scriptSink, commandSink, name)
	if cache != nil {
		cache.EvictPrefix(name + ".")
	}
	log.Printf("[registry] disconnected %q", name)
	return nil
}

// ConnectAutoConnect connects every server config with AutoConnect set,
// per spec.md §4.4. Best-effort: one failure does not stop the others.
func (r *Registry) ConnectAutoConnect(ctx context.Context) (int, []error) {
	r.mu.Lock()
	var names []string
	for name, cfg := range r.configs {
		if cfg.AutoConnect {
			names = append(names, name)
		}
	}
	r.mu.Unlock()

	var errs []error
	connected := 0
	for _, name := range names {
		if err := r.Connect(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", name, err))
			continue
		}
		connected++
	}
	return connected, errs
}

// DisconnectAll tears down every active connection. Safe to call more than
// once.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	r.mu.Unlock()

	for _, name := range names {
		if err := r.Disconnect(name); err != nil {
			log.Printf("[registry] disconnect error for %q: %v", name, err)
		}
	}
}

// Connected reports whether name has an active connection.
func (r *Registry) Connected(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[name]
	return ok && c.connected
}

// ConnectedServers returns the names of every currently connected server.
func (r *Registry) ConnectedServers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.conns))
	for name, c := range r.conns {
		if c.connected {
			names = append(names, name)
		}
	}
	return names
}

// Tools returns the frozen tool snapshot for a connected server.
func (r *Registry) Tools(name string) ([]mcpclient.ToolInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[name]
	if !ok || !c.connected {
		return nil, false
	}
	return c.tools, true
}

// Enqueue submits a tool invocation to the named server's per-connection
// queue (C3), returning a ToolRequest whose Wait() yields the result. It is
// the seam C5's refresh callback and C7's RPC off-load both call through.
func (r *Registry) Enqueue(server, toolName string, args map[string]any) (*queue.ToolRequest, error) {
	r.mu.Lock()
	c, ok := r.conns[server]
	r.mu.Unlock()
	if !ok || !c.connected {
		return nil, mcperr.New(mcperr.KindNotConnected, fmt.Sprintf("registry: server %q not connected", server), nil)
	}
	req := queue.NewToolRequest(toolName, args)
	c.queue.Submit(req)
	return req, nil
}

// Config returns the stored config for name, if any.
func (r *Registry) Config(name string) (config.ServerConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[name]
	return cfg, ok
}
