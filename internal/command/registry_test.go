package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mcpintegration/core/internal/hostapi"
	"github.com/mcpintegration/core/internal/mcpclient"
	"github.com/mcpintegration/core/internal/registry"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	specs []hostapi.CommandSpec
}

func (f *fakeDispatcher) Rebuild(ctx context.Context, specs []hostapi.CommandSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.specs = specs
}

func (f *fakeDispatcher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.specs))
	for i, s := range f.specs {
		names[i] = s.Name
	}
	return names
}

type inlineExecutor struct{}

func (inlineExecutor) Submit(fn func()) { fn() }

type fakeOutput struct {
	mu      sync.Mutex
	written map[string]string
}

func newFakeOutput() *fakeOutput { return &fakeOutput{written: make(map[string]string)} }

func (f *fakeOutput) Write(command, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written[command] = text
}

func (f *fakeOutput) get(command string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.written[command]
	return v, ok
}

func TestBindServer_RebuildsSortedCommandList(t *testing.T) {
	reg := registry.New()
	cmds := NewRegistry(reg)
	disp := &fakeDispatcher{}
	cmds.SetDispatcher(disp)

	cmds.BindServer("weather", []mcpclient.ToolInfo{
		{Name: "z_tool", InputSchema: []byte(`{}`)},
		{Name: "a_tool", InputSchema: []byte(`{}`)},
	})

	got := disp.names()
	want := []string{"weather:a_tool", "weather:z_tool"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected sorted %v, got %v", want, got)
	}
}

func TestUnbindServer_RemovesPrefixedCommands(t *testing.T) {
	reg := registry.New()
	cmds := NewRegistry(reg)
	disp := &fakeDispatcher{}
	cmds.SetDispatcher(disp)

	cmds.BindServer("weather", []mcpclient.ToolInfo{{Name: "get_forecast", InputSchema: []byte(`{}`)}})
	cmds.BindServer("other", []mcpclient.ToolInfo{{Name: "ping", InputSchema: []byte(`{}`)}})
	cmds.UnbindServer("weather")

	got := disp.names()
	if len(got) != 1 || got[0] != "other:ping" {
		t.Errorf("expected only other:ping to remain, got %v", got)
	}
}

func TestRun_MissingRequiredParam(t *testing.T) {
	reg := registry.New()
	cmds := NewRegistry(reg)
	disp := &fakeDispatcher{}
	cmds.SetDispatcher(disp)
	cmds.SetExecutor(inlineExecutor{})

	cmds.BindServer("weather", []mcpclient.ToolInfo{
		{Name: "get_forecast", InputSchema: []byte(`{"properties":{"city":{"type":"string"}},"required":["city"]}`)},
	})

	var spec hostapi.CommandSpec
	for _, s := range disp.specs {
		if s.Name == "weather:get_forecast" {
			spec = s
		}
	}
	got := spec.Run(context.Background(), "")
	want := "Missing required parameters. Usage: <city:string>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRun_HelpReturnsUsage(t *testing.T) {
	reg := registry.New()
	cmds := NewRegistry(reg)
	disp := &fakeDispatcher{}
	cmds.SetDispatcher(disp)

	cmds.BindServer("weather", []mcpclient.ToolInfo{
		{Name: "get_forecast", InputSchema: []byte(`{"properties":{"city":{"type":"string"}},"required":["city"]}`)},
	})

	var spec hostapi.CommandSpec
	for _, s := range disp.specs {
		spec = s
	}
	got := spec.Run(context.Background(), "help")
	want := "weather:get_forecast <city:string>"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRun_NotConnectedDeliversToolError(t *testing.T) {
	reg := registry.New()
	cmds := NewRegistry(reg)
	disp := &fakeDispatcher{}
	out := newFakeOutput()
	cmds.SetDispatcher(disp)
	cmds.SetExecutor(inlineExecutor{})
	cmds.SetOutput(out)

	cmds.BindServer("weather", []mcpclient.ToolInfo{{Name: "get_forecast", InputSchema: []byte(`{}`)}})

	var spec hostapi.CommandSpec
	for _, s := range disp.specs {
		spec = s
	}
	ret := spec.Run(context.Background(), "")
	if ret != "" {
		t.Errorf("expected empty synchronous return for offloaded execution, got %q", ret)
	}

	deadline := time.After(2 * time.Second)
	for {
		if text, ok := out.get("weather:get_forecast"); ok {
			if text[:len("Tool Error:")] != "Tool Error:" {
				t.Errorf("expected Tool Error: prefix, got %q", text)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("output sink never received a result")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSuggestParams_CaseInsensitivePrefix(t *testing.T) {
	schema := schemaFrom(t, `{"properties":{"City":{"type":"string"},"days":{"type":"integer"}}}`)
	got := suggestParams(schema, "ci")
	if len(got) != 1 || got[0] != "City=" {
		t.Errorf("expected [City=], got %v", got)
	}
}
