// Package llmclient implements the LLM Client Manager (C9): a cached Gemini
// client keyed by structural config equality, per spec.md §4.9.
package llmclient

import (
	"context"
	"fmt"
	"log"
	"sync"

	"google.golang.org/genai"

	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/mcperr"
)

// testPrompt is the short fixed prompt testConfiguration issues against a
// throw-away client, per spec.md §4.9.
const testPrompt = "Respond with the single word: OK"

// Manager holds the cached *genai.Client and the config it was built from,
// rebuilding on structural change. Thread-safe via a single mutex guarding
// both fields, per spec.md §4.9.
type Manager struct {
	mu     sync.Mutex
	client *genai.Client
	cfg    config.LLMConfig
}

// New creates an empty Manager. The first GetClient call builds the client.
func New() *Manager {
	return &Manager{}
}

// IsConfigured reports enabled ∧ hasCredentials against the live config
// passed by the caller, per spec.md §4.9.
func IsConfigured(cfg config.LLMConfig) bool {
	return cfg.IsConfigured()
}

// GetClient returns the cached client for cfg, rebuilding it when cfg
// differs (by structural equality) from the config the cache was built
// from. The old client is closed best-effort before being replaced.
func (m *Manager) GetClient(ctx context.Context, cfg config.LLMConfig) (*genai.Client, error) {
	if !cfg.IsConfigured() {
		return nil, mcperr.New(mcperr.KindNotConfigured, "llmclient: llm is not configured", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil && m.cfg.Equal(cfg) {
		return m.client, nil
	}

	next, err := buildClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	closeClient(m.client)
	m.client = next
	m.cfg = cfg
	return m.client, nil
}

// Invalidate drops the cached client, forcing the next GetClient call to
// rebuild, per spec.md §4.9's invalidate().
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	closeClient(m.client)
	m.client = nil
	m.cfg = config.LLMConfig{}
}

// TestConfiguration builds a throw-away client for cfg, issues a short
// fixed prompt, and reports (success, message). It never touches the
// Manager's cache, per spec.md §4.9.
func TestConfiguration(ctx context.Context, cfg config.LLMConfig) (bool, string) {
	if !cfg.IsConfigured() {
		return false, "llm is not configured"
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return false, fmt.Sprintf("failed to build client: %v", err)
	}
	defer closeClient(client)

	resp, err := client.Models.GenerateContent(ctx, string(cfg.ModelID),
		[]*genai.Content{genai.NewContentFromText(testPrompt, genai.RoleUser)}, nil)
	if err != nil {
		return false, fmt.Sprintf("test call failed: %v", err)
	}
	if text := resp.Text(); text != "" {
		return true, text
	}
	return true, "model returned no text, but the call succeeded"
}

func buildClient(ctx context.Context, cfg config.LLMConfig) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, mcperr.New(mcperr.KindTransportError, "llmclient: failed to build client", err)
	}
	return client, nil
}

// closeClient closes c best-effort if it exposes a Close method, per
// spec.md §4.9's "closing the old client best-effort". The genai SDK does
// not guarantee a Close method across versions, so this degrades silently
// when absent.
func closeClient(c *genai.Client) {
	if c == nil {
		return
	}
	closer, ok := any(c).(interface{ Close() error })
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.Printf("[llmclient] close error: %v", err)
	}
}
