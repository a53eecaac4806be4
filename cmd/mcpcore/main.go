// Command mcpcore is a minimal embedding host: it wires every MCP
// Integration Core component (C1-C10) together and drives a tiny
// stdin/stdout REPL, demonstrating the assembly a real host GUI would do.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mcpintegration/core/internal/cache"
	"github.com/mcpintegration/core/internal/command"
	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/llmclient"
	"github.com/mcpintegration/core/internal/llmloop"
	"github.com/mcpintegration/core/internal/registry"
	"github.com/mcpintegration/core/internal/schema"
)

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║       MCP Integration Core           ║")
	fmt.Println("╚══════════════════════════════════════╝")
	fmt.Printf("🗂️  .env: %s\n", config.EnvFilePath())

	seedPath := os.Getenv("MCP_CONFIG")
	if seedPath == "" {
		seedPath = "mcp.yaml"
	}
	blob := config.Blob{LLM: config.DefaultLLMConfig()}
	if _, err := os.Stat(seedPath); err == nil {
		loaded, err := config.LoadSeedFile(seedPath)
		if err != nil {
			log.Fatalf("❌ failed to load %s: %v", seedPath, err)
		}
		blob = loaded
		fmt.Printf("📂 Loaded %d server(s) from %s\n", len(blob.Servers), seedPath)
	} else {
		fmt.Printf("📂 No seed file at %s, starting with no servers configured\n", seedPath)
	}

	reg := registry.New()
	cacheLayer := cache.New()
	cmdRegistry := command.NewRegistry(reg)

	reg.SetCache(cacheLayer)
	reg.SetCommandSink(cmdRegistry)
	// No script evaluator wired in this demo host; a real host would also
	// do: binder := script.NewBinder(reg, cacheLayer, evaluator);
	// reg.SetScriptSink(binder)

	for _, sc := range blob.Servers {
		if err := reg.Add(sc); err != nil {
			log.Printf("⚠️  skipping server %q: %v", sc.Name, err)
		}
	}

	ctx := context.Background()
	n, errs := reg.ConnectAutoConnect(ctx)
	fmt.Printf("🔌 Auto-connected %d server(s)\n", n)
	for _, e := range errs {
		log.Printf("⚠️  connect: %v", e)
	}
	defer reg.DisconnectAll()

	clients := llmclient.New()
	bridge := schema.New()
	loop := llmloop.New(clients, reg, bridge, func() config.LLMConfig { return blob.LLM })

	if !llmclient.IsConfigured(blob.LLM) {
		fmt.Println("🤖 LLM not configured (set a Gemini api key in the blob to enable prompts)")
	} else {
		fmt.Printf("🤖 LLM: %s\n", blob.LLM.ModelID)
	}

	fmt.Println("Type a prompt and press enter (blank line to quit).")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		if !llmclient.IsConfigured(blob.LLM) {
			fmt.Println("(llm not configured)")
			continue
		}
		result, err := loop.WithTools(ctx, line, nil)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(result.Text)
		for _, tc := range result.ToolCalls {
			fmt.Printf("  [%s.%s] %dms success=%v\n", tc.Server, tc.Tool, tc.DurationMs, tc.Success)
		}
	}
}
