package script

import (
	"sync"
	"testing"

	"github.com/mcpintegration/core/internal/cache"
	"github.com/mcpintegration/core/internal/hostapi"
	"github.com/mcpintegration/core/internal/mcpclient"
	"github.com/mcpintegration/core/internal/registry"
)

type fakeEvaluator struct {
	mu      sync.Mutex
	bound   map[string]map[string]hostapi.Function
	unbound []string
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{bound: make(map[string]map[string]hostapi.Function)}
}

func (f *fakeEvaluator) Bind(namespace string, functions map[string]hostapi.Function) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound[namespace] = functions
}

func (f *fakeEvaluator) Unbind(namespace string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bound, namespace)
	f.unbound = append(f.unbound, namespace)
}

func TestBindServer_InstallsOneFunctionPerTool(t *testing.T) {
	reg := registry.New()
	c := cache.New()
	ev := newFakeEvaluator()
	binder := NewBinder(reg, c, ev)

	tools := []mcpclient.ToolInfo{
		{Name: "get_forecast", InputSchema: []byte(`{"properties":{"city":{"type":"string"}}}`)},
		{Name: "get_alerts", InputSchema: []byte(`{}`)},
	}
	binder.BindServer("weather", tools)

	ev.mu.Lock()
	fns, ok := ev.bound["weather"]
	ev.mu.Unlock()
	if !ok {
		t.Fatal("expected weather namespace to be bound")
	}
	if len(fns) != 2 {
		t.Errorf("expected 2 functions, got %d", len(fns))
	}
}

func TestFunction_DisconnectedServerReturnsError(t *testing.T) {
	reg := registry.New()
	c := cache.New()
	ev := newFakeEvaluator()
	binder := NewBinder(reg, c, ev)

	tools := []mcpclient.ToolInfo{{Name: "get_forecast", InputSchema: []byte(`{}`)}}
	binder.BindServer("weather", tools)

	ev.mu.Lock()
	fn := ev.bound["weather"]["get_forecast"]
	ev.mu.Unlock()

	got := fn(nil)
	if got != "Error: Server disconnected" {
		t.Errorf("expected disconnected error, got %q", got)
	}
}

func TestUnbindServer_RemovesNamespace(t *testing.T) {
	reg := registry.New()
	c := cache.New()
	ev := newFakeEvaluator()
	binder := NewBinder(reg, c, ev)

	binder.BindServer("weather", []mcpclient.ToolInfo{{Name: "x", InputSchema: []byte(`{}`)}})
	binder.UnbindServer("weather")

	ev.mu.Lock()
	_, stillBound := ev.bound["weather"]
	ev.mu.Unlock()
	if stillBound {
		t.Error("expected weather namespace to be unbound")
	}
}
