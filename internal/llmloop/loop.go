// Package llmloop implements the LLM Execution Loop (C10): the two entry
// points `Simple` and `WithTools` that drive Gemini `generateContent` calls,
// optionally routing function calls back out to connected MCP servers via
// the Server Registry (C4) and Schema Bridge (C8), per spec.md §4.10.
package llmloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/llmclient"
	"github.com/mcpintegration/core/internal/mcpclient"
	"github.com/mcpintegration/core/internal/mcperr"
	"github.com/mcpintegration/core/internal/registry"
	"github.com/mcpintegration/core/internal/schema"
)

// MaxIterations bounds the function-calling loop, per spec.md §4.10.
const MaxIterations = 6

// ToolCallInfo records one tool invocation made during a WithTools call,
// per spec.md §4.10.
type ToolCallInfo struct {
	Server       string
	Tool         string
	DurationMs   int64
	Success      bool
	ErrorMessage string
}

// Result is what WithTools returns: the final text plus every tool call it
// made along the way.
type Result struct {
	Text      string
	ToolCalls []ToolCallInfo
}

// ConfigFunc supplies the live LLM config on demand, so the Loop always
// sees the host's current settings rather than a snapshot taken at
// construction time.
type ConfigFunc func() config.LLMConfig

// Loop wires C9 (client cache), C4 (server registry, for routing tool
// calls), and C8 (schema bridge, for FunctionDeclaration + routing) into
// the two entry points spec.md §4.10 describes.
type Loop struct {
	clients  *llmclient.Manager
	registry *registry.Registry
	bridge   *schema.Bridge
	cfg      ConfigFunc
}

// New creates a Loop. cfg is called on every entry point invocation to
// fetch the live LLM config.
func New(clients *llmclient.Manager, reg *registry.Registry, bridge *schema.Bridge, cfg ConfigFunc) *Loop {
	return &Loop{clients: clients, registry: reg, bridge: bridge, cfg: cfg}
}

// Simple sends prompt with no tool declarations and returns the extracted
// text, per spec.md §4.10.
func (l *Loop) Simple(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", mcperr.New(mcperr.KindInvalidConfig, "llmloop: prompt must not be blank", nil)
	}

	cfg := l.cfg()
	client, err := l.clients.GetClient(ctx, cfg)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, string(cfg.ModelID),
		[]*genai.Content{userText(prompt)}, baseConfig(cfg, nil))
	if err != nil {
		return "", mcperr.New(mcperr.KindTransportError, "llmloop: generateContent failed", err)
	}

	text := responseText(resp)
	if text == "" {
		return "(model returned no text)", nil
	}
	return text, nil
}

// WithTools drives the function-calling loop against serverNames (or every
// connected server, if empty), per spec.md §4.10.
func (l *Loop) WithTools(ctx context.Context, prompt string, serverNames map[string]struct{}) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, mcperr.New(mcperr.KindInvalidConfig, "llmloop: prompt must not be blank", nil)
	}

	cfg := l.cfg()
	client, err := l.clients.GetClient(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	servers := l.targetServers(serverNames)
	decls := l.declarations(servers)
	if len(decls) == 0 {
		text, err := l.Simple(ctx, prompt)
		return Result{Text: text}, err
	}

	genCfg := baseConfig(cfg, decls)
	h := newHistory(prompt)
	var calls []ToolCallInfo

	for i := 0; i < MaxIterations; i++ {
		resp, err := client.Models.GenerateContent(ctx, string(cfg.ModelID), h.contents(), genCfg)
		if err != nil {
			return Result{ToolCalls: calls}, mcperr.New(mcperr.KindTransportError, "llmloop: generateContent failed", err)
		}

		fcs := functionCalls(resp)
		if len(fcs) == 0 {
			return Result{Text: responseText(resp), ToolCalls: calls}, nil
		}

		h.appendModel(modelContent(resp))

		executed := 0
		for _, fc := range fcs {
			info, payload := l.invoke(ctx, fc)
			if info != nil {
				calls = append(calls, *info)
				executed++
			}
			h.appendFunctionResponse(fc.ID, fc.Name, payload)
		}
		if executed == 0 {
			return Result{Text: "could not execute any MCP tools", ToolCalls: calls}, nil
		}
	}

	return Result{Text: "did not finish within the iteration limit", ToolCalls: calls}, nil
}

// targetServers snapshots the connected servers a WithTools call should
// expose tools from: the passed set, or all connected servers if empty.
func (l *Loop) targetServers(requested map[string]struct{}) []string {
	connected := l.registry.ConnectedServers()
	if len(requested) == 0 {
		return connected
	}
	var out []string
	for _, name := range connected {
		if _, ok := requested[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// declarations builds one FunctionDeclaration per tool of every server in
// servers, via C8, recording the routing table as a side effect.
func (l *Loop) declarations(servers []string) []*genai.FunctionDeclaration {
	var decls []*genai.FunctionDeclaration
	for _, server := range servers {
		tools, ok := l.registry.Tools(server)
		if !ok {
			continue
		}
		for _, tool := range tools {
			decl, err := l.bridge.Declare(server, tool.Name, tool.Description, tool.InputSchema)
			if err != nil {
				continue
			}
			decls = append(decls, decl)
		}
	}
	return decls
}

// invoke resolves and executes one function call, returning the
// ToolCallInfo to record (nil if resolution failed, meaning nothing was
// actually executed) and the functionResponse payload to append to
// history, per spec.md §4.10.
func (l *Loop) invoke(ctx context.Context, fc *genai.FunctionCall) (*ToolCallInfo, map[string]any) {
	server, tool, ok := l.bridge.Resolve(fc.Name)
	// Resolve's first-`_` fallback (spec.md §4.8) can turn an entirely
	// fabricated name into a syntactically valid (server, tool) pair. When
	// the target server is connected, check the split against its actually
	// reported tools so a made-up name can't masquerade as a live one; a
	// disconnected server can't be checked this way, so it falls through
	// to the "not connected" branch below instead, same as before.
	if ok {
		if tools, known := l.registry.Tools(server); known && !toolExists(tools, tool) {
			ok = false
		}
	}
	if !ok {
		return nil, map[string]any{"error": true, "message": fmt.Sprintf("Unknown function requested: %s", fc.Name)}
	}
	if !l.registry.Connected(server) {
		return nil, map[string]any{"error": true, "message": fmt.Sprintf("Server %q is not connected.", server)}
	}

	args := sanitizeArgs(fc.Args)
	start := time.Now()
	req, err := l.registry.Enqueue(server, tool, args)
	if err != nil {
		info := &ToolCallInfo{Server: server, Tool: tool, Success: false, ErrorMessage: err.Error()}
		return info, map[string]any{"error": true, "message": err.Error()}
	}
	res := req.Wait()
	durationMs := time.Since(start).Milliseconds()

	info := &ToolCallInfo{Server: server, Tool: tool, DurationMs: durationMs, Success: res.Err == nil}
	if res.Err != nil {
		info.ErrorMessage = res.Err.Error()
		return info, map[string]any{"error": true, "message": res.Err.Error()}
	}
	if res.Text == "" {
		return info, map[string]any{"message": "Tool completed without returning data."}
	}
	return info, map[string]any{"content": res.Text}
}

// toolExists reports whether name is among tools, per spec.md §4.8's
// masquerade guard on the routing fallback's split result.
func toolExists(tools []mcpclient.ToolInfo, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// sanitizeArgs drops any entry whose key is empty or literally "null"
// before forwarding to a tool, per spec.md §4.10's argument sanitization
// rule.
func sanitizeArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if k == "" || k == "null" {
			continue
		}
		out[k] = v
	}
	return out
}

// baseConfig builds the GenerateContentConfig shared by Simple and
// WithTools, adding the tool declarations and disabling automatic function
// calling when decls is non-empty, per spec.md §4.10.
func baseConfig(cfg config.LLMConfig, decls []*genai.FunctionDeclaration) *genai.GenerateContentConfig {
	temperature := float32(cfg.Temperature)
	out := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(cfg.MaxOutputTokens),
	}
	if len(decls) > 0 {
		out.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		out.AutomaticFunctionCalling = &genai.AutomaticFunctionCallingConfig{Disable: true}
	}
	return out
}
