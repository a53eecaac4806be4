// Package mcpclient implements the Transport Client (C2): spawning a child
// process, performing the MCP handshake, listing tools, and invoking tools,
// per spec.md §4.2.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdk_client "github.com/mark3labs/mcp-go/client"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
	sdk_transport "github.com/mark3labs/mcp-go/client/transport"

	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/mcperr"
)

// ToolInfo captures the metadata of a single tool exposed by an MCP server,
// per spec.md §3's "Tool descriptor".
type ToolInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Client wraps the mcp-go SDK client for a single MCP server connection.
// It is safe for concurrent use; callers are still expected to serialize
// CallTool invocations through the Per-Server Request Queue (C3) — this
// type itself does not enforce that.
type Client struct {
	mu    sync.RWMutex
	cfg   config.ServerConfig
	inner sdk_client.MCPClient
}

// NewClient creates an uninitialised Client for the given server config.
// Call Connect to establish the connection and complete the MCP handshake.
func NewClient(cfg config.ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the transport connection and performs the MCP
// initialize handshake, bounded by cfg.TimeoutMs. On any failure, Close is
// invoked and no partial state is exposed, per spec.md §4.2.
func (c *Client) Connect(ctx context.Context) error {
	timeout := time.Duration(c.cfg.TimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var inner sdk_client.MCPClient
	switch c.cfg.Transport {
	case config.TransportStdio:
		cli, err := newStdioClient(ctx, c.cfg)
		if err != nil {
			return mcperr.Newf(mcperr.KindTransportError, err, "start stdio server %q", c.cfg.Name)
		}
		inner = cli

	case config.TransportSSE:
		return mcperr.Newf(mcperr.KindTransportError, fmt.Errorf("NotImplemented"), "transport %q for server %q", c.cfg.Transport, c.cfg.Name)

	default:
		return mcperr.Newf(mcperr.KindTransportError, nil, "unknown transport %q for server %q", c.cfg.Transport, c.cfg.Name)
	}

	_, err := inner.Initialize(ctx, sdk_mcp.InitializeRequest{
		Params: sdk_mcp.InitializeParams{
			ProtocolVersion: sdk_mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdk_mcp.Implementation{
				Name:    "mcp-integration-core",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		_ = inner.Close()
		if ctx.Err() != nil {
			return mcperr.Newf(mcperr.KindTimeoutError, err, "initialize server %q", c.cfg.Name)
		}
		return mcperr.Newf(mcperr.KindTransportError, err, "initialize server %q", c.cfg.Name)
	}

	c.mu.Lock()
	c.inner = inner
	c.mu.Unlock()
	return nil
}

// newStdioClient spawns the child process, merging cfg.Env on top of the
// parent environment and applying cfg.WorkingDir via exec.Cmd.Dir.
//
// This always sets an explicit working directory on the spawned exec.Cmd
// rather than shell-wrapping the command, since mcp-go's
// transport.WithCommandFunc hook gives uniform control over the spawned
// process across platforms — no platform-specific special case is needed.
func newStdioClient(ctx context.Context, cfg config.ServerConfig) (sdk_client.MCPClient, error) {
	env := mergedEnv(cfg.Env)
	return sdk_client.NewStdioMCPClientWithOptions(cfg.Command, env, cfg.Args,
		sdk_transport.WithCommandFunc(func(ctx context.Context, command string, args []string, env []string) (*exec.Cmd, error) {
			cmd := exec.CommandContext(ctx, command, args...)
			cmd.Env = env
			if cfg.WorkingDir != "" {
				cmd.Dir = cfg.WorkingDir
			}
			return cmd, nil
		}),
	)
}

func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

// ListTools returns metadata for all tools exposed by this MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	inner, ok := c.snapshot()
	if !ok {
		return nil, mcperr.New(mcperr.KindNotConnected, fmt.Sprintf("client %q not connected", c.cfg.Name), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	result, err := inner.ListTools(ctx, sdk_mcp.ListToolsRequest{})
	if err != nil {
		return nil, wrapTransport(ctx, c.cfg.Name, "list tools", err)
	}

	tools := make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return tools, nil
}

// CallTool invokes the named tool with args and returns its rendered
// result. Per spec.md §4.2: NotConnected before handshake, TransportError
// on I/O failure, ToolError when the server reports isError=true — the
// rendered payload is still returned alongside ToolError so callers can
// inspect it.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	inner, ok := c.snapshot()
	if !ok {
		return "", mcperr.New(mcperr.KindNotConnected, fmt.Sprintf("client %q not connected", c.cfg.Name), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	req := sdk_mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx, req)
	if err != nil {
		return "", wrapTransport(ctx, c.cfg.Name, fmt.Sprintf("call tool %q", name), err)
	}

	text := RenderContent(result.Content)
	if result.IsError {
		return text, mcperr.New(mcperr.KindToolError, fmt.Sprintf("tool %q reported an error", name), fmt.Errorf("%s", text))
	}
	return text, nil
}

// RenderContent stringifies a tool's content items per spec.md §4.6's
// "Result rendering": a single textual item's own text; multiple items
// joined with newline; image content's opaque data string; anything else
// its textual form. Shared by C6's script callable and C7's command
// output, which layers further formatting on top.
func RenderContent(items []sdk_mcp.Content) string {
	if len(items) == 1 {
		if tc, ok := items[0].(sdk_mcp.TextContent); ok {
			return tc.Text
		}
	}

	parts := make([]string, 0, len(items))
	for _, content := range items {
		switch v := content.(type) {
		case sdk_mcp.TextContent:
			parts = append(parts, v.Text)
		case sdk_mcp.ImageContent:
			parts = append(parts, v.Data)
		default:
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}
	return strings.Join(parts, "\n")
}

// Close terminates the connection and releases resources. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	inner := c.inner
	c.inner = nil
	c.mu.Unlock()

	if inner == nil {
		return nil
	}
	return inner.Close()
}

// Connected reports whether the handshake has completed.
func (c *Client) Connected() bool {
	_, ok := c.snapshot()
	return ok
}

func (c *Client) snapshot() (sdk_client.MCPClient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner, c.inner != nil
}

func (c *Client) timeout() time.Duration {
	return time.Duration(c.cfg.TimeoutMs) * time.Millisecond
}

func wrapTransport(ctx context.Context, server, op string, err error) *mcperr.Error {
	if ctx.Err() != nil {
		return mcperr.New(mcperr.KindTimeoutError, fmt.Sprintf("%s on %q", op, server), err)
	}
	return mcperr.New(mcperr.KindTransportError, fmt.Sprintf("%s on %q", op, server), err)
}
