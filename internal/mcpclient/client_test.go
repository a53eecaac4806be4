package mcpclient

import (
	"context"
	"errors"
	"testing"

	"github.com/mcpintegration/core/internal/config"
	"github.com/mcpintegration/core/internal/mcperr"
)

func TestConnect_UnknownTransport(t *testing.T) {
	cfg := config.ServerConfig{Name: "x", Transport: "grpc", TimeoutMs: 1000}
	cli := NewClient(cfg)
	err := cli.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error for unknown transport")
	}
	if !errors.Is(err, mcperr.Of(mcperr.KindTransportError)) {
		t.Errorf("expected TransportError kind, got %v", err)
	}
}

func TestConnect_SSENotImplemented(t *testing.T) {
	cfg := config.ServerConfig{Name: "x", Transport: config.TransportSSE, URL: "http://x", TimeoutMs: 1000}
	cli := NewClient(cfg)
	err := cli.Connect(context.Background())
	if err == nil {
		t.Fatal("expected NotImplemented error for sse transport")
	}
}

func TestClose_WhenNotConnected(t *testing.T) {
	cli := NewClient(config.ServerConfig{Name: "x", Transport: config.TransportStdio, TimeoutMs: 1000})
	if err := cli.Close(); err != nil {
		t.Errorf("unexpected Close error: %v", err)
	}
}

func TestCallTool_NotConnected(t *testing.T) {
	cli := NewClient(config.ServerConfig{Name: "x", Transport: config.TransportStdio, TimeoutMs: 1000})
	_, err := cli.CallTool(context.Background(), "anything", nil)
	if err == nil {
		t.Fatal("expected NotConnected error")
	}
	if !errors.Is(err, mcperr.Of(mcperr.KindNotConnected)) {
		t.Errorf("expected NotConnected kind, got %v", err)
	}
}

func TestListTools_NotConnected(t *testing.T) {
	cli := NewClient(config.ServerConfig{Name: "x", Transport: config.TransportStdio, TimeoutMs: 1000})
	if _, err := cli.ListTools(context.Background()); !errors.Is(err, mcperr.Of(mcperr.KindNotConnected)) {
		t.Errorf("expected NotConnected kind, got %v", err)
	}
}

func TestConnected_FalseBeforeConnect(t *testing.T) {
	cli := NewClient(config.ServerConfig{Name: "x", Transport: config.TransportStdio, TimeoutMs: 1000})
	if cli.Connected() {
		t.Error("expected Connected()==false before Connect")
	}
}
