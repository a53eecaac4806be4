// Package queue implements the Per-Server Request Queue (C3): it linearizes
// all tool invocations against one MCP connection, per spec.md §4.3.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mcpintegration/core/internal/mcperr"
)

// Caller is the single synchronous entry point C3 serializes calls
// through — in production this is (*mcpclient.Client).CallTool, injected
// so the queue can be tested without a real subprocess.
type Caller func(ctx context.Context, toolName string, args map[string]any) (string, error)

// ToolRequest is one queued invocation, per spec.md §3. completionSlot is
// represented as a Go channel: a single-shot result channel.
type ToolRequest struct {
	ID       string
	ToolName string
	Args     map[string]any
	result   chan Result
}

// Result is what a ToolRequest's completion slot receives.
type Result struct {
	Text string
	Err  error
}

// NewToolRequest builds a ToolRequest with a fresh tracing id and a
// one-slot buffered completion channel, so completing it never blocks.
func NewToolRequest(toolName string, args map[string]any) *ToolRequest {
	return &ToolRequest{
		ID:       uuid.NewString(),
		ToolName: toolName,
		Args:     args,
		result:   make(chan Result, 1),
	}
}

// Queue serializes tool invocations for one MCP connection behind a single
// consumer goroutine — the only goroutine allowed to call Caller, per
// spec.md §5. Submit hands off to an internal channel buffered for 4096
// requests that is drained FIFO by the worker loop; the queue is not
// unbounded: while 4096 requests are pending, Submit blocks until the
// worker takes one or the queue shuts down.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc

	requests chan *ToolRequest

	mu       sync.Mutex
	draining bool
	done     chan struct{}
}

// New starts a Queue whose worker calls caller for each submitted request,
// strictly FIFO, one at a time.
func New(caller Caller) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		ctx:      ctx,
		cancel:   cancel,
		requests: make(chan *ToolRequest, 4096),
		done:     make(chan struct{}),
	}
	go q.run(caller)
	return q
}

// Submit enqueues req and returns immediately. The caller reads the result
// from req.Wait(). If the queue is shutting down, the request is completed
// with ShuttingDown instead of being enqueued.
func (q *Queue) Submit(req *ToolRequest) {
	q.mu.Lock()
	draining := q.draining
	q.mu.Unlock()

	if draining {
		req.result <- Result{Err: mcperr.New(mcperr.KindShuttingDown, "queue is shutting down", nil)}
		return
	}

	select {
	case q.requests <- req:
	case <-q.ctx.Done():
		req.result <- Result{Err: mcperr.New(mcperr.KindShuttingDown, "queue is shutting down", nil)}
	}
}

// Wait blocks until req completes and returns its Result.
func (r *ToolRequest) Wait() Result {
	return <-r.result
}

func (q *Queue) run(caller Caller) {
	defer close(q.done)
	for {
		select {
		case req := <-q.requests:
			text, err := caller(q.ctx, req.ToolName, req.Args)
			req.result <- Result{Text: text, Err: err}
		case <-q.ctx.Done():
			q.drain()
			return
		}
	}
}

// drain completes every request still sitting in the channel buffer with
// ShuttingDown, per spec.md §4.3/§5: pending requests are drained and
// completed, but an in-flight RPC (already handed to caller) is awaited,
// not forcibly aborted. Shutdown calls drain directly, so pending requests
// complete without waiting for the in-flight call; run() calls it again
// once the in-flight caller() call (if any) has returned.
func (q *Queue) drain() {
	for {
		select {
		case req := <-q.requests:
			req.result <- Result{Err: mcperr.New(mcperr.KindShuttingDown, "queue is shutting down", nil)}
		default:
			return
		}
	}
}

// Shutdown stops accepting new work and drains pending requests with
// ShuttingDown. Safe to call once; subsequent calls are no-ops.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	q.cancel()
	q.drain()
	<-q.done
}
