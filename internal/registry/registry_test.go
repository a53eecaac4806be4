package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/mcperr"
	"github.com/mcpintegration/core/internal/mcpclient"
)

type fakeBinder struct {
	mu     sync.Mutex
	bound  []string
	unbind []string
}

func (f *fakeBinder) BindServer(name string, tools []mcpclient.ToolInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound = append(f.bound, name)
}

func (f *fakeBinder) UnbindServer(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbind = append(f.unbind, name)
}

type fakeCache struct {
	mu      sync.Mutex
	evicted []string
}

func (f *fakeCache) EvictPrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted = append(f.evicted, prefix)
}

func TestAdd_DuplicateRejected(t *testing.T) {
	r := New()
	cfg := config.ServerConfig{Name: "weather", Transport: config.TransportStdio, Command: "python3", TimeoutMs: 1000}
	if err := r.Add(cfg); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := r.Add(cfg); err == nil {
		t.Error("expected error adding duplicate server name")
	}
}

func TestAdd_InvalidConfigRejected(t *testing.T) {
	r := New()
	err := r.Add(config.ServerConfig{Name: "", Transport: config.TransportStdio, Command: "x"})
	if err == nil {
		t.Error("expected validation error for empty name")
	}
}

func TestConnect_UnknownServer(t *testing.T) {
	r := New()
	err := r.Connect(context.Background(), "ghost")
	if !errors.Is(err, mcperr.Of(mcperr.KindInvalidConfig)) {
		t.Errorf("expected InvalidConfig, got %v", err)
	}
}

func TestConnect_UnreachableCommandFails(t *testing.T) {
	r := New()
	cfg := config.ServerConfig{Name: "bad", Transport: config.TransportStdio, Command: "/nonexistent/binary/does-not-exist", TimeoutMs: 200}
	if err := r.Add(cfg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Connect(context.Background(), "bad"); err == nil {
		t.Error("expected error connecting to a nonexistent binary")
	}
	if r.Connected("bad") {
		t.Error("Connected() should be false after a failed Connect")
	}
}

func TestDisconnect_WhenNeverConnected(t *testing.T) {
	r := New()
	cfg := config.ServerConfig{Name: "weather", Transport: config.TransportStdio, Command: "python3", TimeoutMs: 1000}
	_ = r.Add(cfg)
	if err := r.Disconnect("weather"); err != nil {
		t.Errorf("Disconnect on unconnected server should be a no-op, got %v", err)
	}
}

func TestRemove_UnknownServer(t *testing.T) {
	r := New()
	if err := r.Remove("ghost"); err == nil {
		t.Error("expected error removing an unknown server")
	}
}

func TestUpdate_RenameCollision(t *testing.T) {
	r := New()
	_ = r.Add(config.ServerConfig{Name: "a", Transport: config.TransportStdio, Command: "x", TimeoutMs: 1000})
	_ = r.Add(config.ServerConfig{Name: "b", Transport: config.TransportStdio, Command: "y", TimeoutMs: 1000})

	err := r.Update("a", config.ServerConfig{Name: "b", Transport: config.TransportStdio, Command: "z", TimeoutMs: 1000})
	if err == nil {
		t.Error("expected error renaming to an already-taken name")
	}
}

func TestConnectAutoConnect_SkipsNonAutoConnect(t *testing.T) {
	r := New()
	_ = r.Add(config.ServerConfig{Name: "manual", Transport: config.TransportStdio, Command: "/bin/true", AutoConnect: false, TimeoutMs: 1000})

	n, errs := r.ConnectAutoConnect(context.Background())
	if n != 0 || len(errs) != 0 {
		t.Errorf("expected no auto-connect attempts, got n=%d errs=%v", n, errs)
	}
	if r.Connected("manual") {
		t.Error("non-autoConnect server must not be connected")
	}
}

func TestEnqueue_NotConnected(t *testing.T) {
	r := New()
	_, err := r.Enqueue("weather", "get_forecast", nil)
	if !errors.Is(err, mcperr.Of(mcperr.KindNotConnected)) {
		t.Errorf("expected NotConnected, got %v", err)
	}
}

func TestConnectedServers_EmptyInitially(t *testing.T) {
	r := New()
	if got := r.ConnectedServers(); len(got) != 0 {
		t.Errorf("expected no connected servers, got %v", got)
	}
}
