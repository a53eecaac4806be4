package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcpintegration/core/internal/mcperr"
)

// TestQueue_FIFOOrdering covers P1 (queue linearity): the sequence of
// caller invocations must equal submit order.
func TestQueue_FIFOOrdering(t *testing.T) {
	var mu sync.Mutex
	var observed []string

	release := make(chan struct{})
	caller := func(ctx context.Context, toolName string, args map[string]any) (string, error) {
		<-release // force serialization to be observable
		mu.Lock()
		observed = append(observed, toolName)
		mu.Unlock()
		return "ok", nil
	}

	q := New(caller)
	defer q.Shutdown()

	reqs := []*ToolRequest{
		NewToolRequest("a", nil),
		NewToolRequest("b", nil),
		NewToolRequest("c", nil),
	}
	for _, r := range reqs {
		q.Submit(r)
	}

	go func() {
		for range reqs {
			release <- struct{}{}
		}
	}()

	for _, r := range reqs {
		res := r.Wait()
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 3 || observed[0] != "a" || observed[1] != "b" || observed[2] != "c" {
		t.Errorf("expected FIFO order [a b c], got %v", observed)
	}
}

func TestQueue_ShutdownDrainsPending(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	caller := func(ctx context.Context, toolName string, args map[string]any) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return "done", nil
	}

	q := New(caller)

	inFlight := NewToolRequest("slow", nil)
	q.Submit(inFlight)
	<-started // ensure the worker has picked it up before shutting down

	pending := NewToolRequest("never-runs", nil)
	q.Submit(pending)

	shutdownDone := make(chan struct{})
	go func() {
		q.Shutdown()
		close(shutdownDone)
	}()

	// The pending request must complete with ShuttingDown without waiting
	// for the in-flight one to unblock.
	res := pending.Wait()
	if res.Err == nil || !errors.Is(res.Err, mcperr.Of(mcperr.KindShuttingDown)) {
		t.Errorf("expected ShuttingDown for pending request, got %v", res.Err)
	}

	close(block) // let the in-flight call finish
	inFlightRes := inFlight.Wait()
	if inFlightRes.Err != nil {
		t.Errorf("in-flight request should complete normally, got %v", inFlightRes.Err)
	}

	select {
	case <-shutdownDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return after in-flight request completed")
	}
}

func TestQueue_SubmitAfterShutdown(t *testing.T) {
	q := New(func(ctx context.Context, toolName string, args map[string]any) (string, error) {
		return "", nil
	})
	q.Shutdown()

	req := NewToolRequest("x", nil)
	q.Submit(req)
	res := req.Wait()
	if !errors.Is(res.Err, mcperr.Of(mcperr.KindShuttingDown)) {
		t.Errorf("expected ShuttingDown, got %v", res.Err)
	}
}
