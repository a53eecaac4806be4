package cache

import (
	"fmt"
	"strings"
	"sync"
)

// loadingPlaceholder is the initial lastValue for a key that has never
// completed a refresh, per spec.md §3.
const loadingPlaceholder = "Loading..."

// entry is spec.md §3's AsyncResult: at most one outstanding refresh per
// key, enforced by inFlight.
type entry struct {
	lastValue string
	inFlight  bool
}

// Fetch performs one synchronous round trip through C3/C2 and returns the
// stringified result. Cache.Read never calls Fetch itself on the caller's
// goroutine — it is only ever run on a background goroutine the cache
// spawns, so Read's steady-state latency stays O(1).
type Fetch func() (string, error)

// Cache is a thread-safe, non-blocking "last-known-value with refresh"
// cache. The script evaluator runs on a latency-critical loop and must
// never block on RPC, per spec.md §4.5's rationale; Cache.Read guarantees
// that by always returning the current lastValue immediately and only ever
// scheduling at most one refresh per key in the background.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Read returns the current last-known value for (server, tool, args),
// scheduling a background refresh via fetch if none is already in flight
// for this key. It never blocks on fetch.
func (c *Cache) Read(server, tool string, args map[string]any, fetch Fetch) string {
	key := Key(server, tool, args)

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{lastValue: loadingPlaceholder}
		c.entries[key] = e
	}
	shouldRefresh := !e.inFlight
	if shouldRefresh {
		e.inFlight = true
	}
	value := e.lastValue
	c.mu.Unlock()

	if shouldRefresh {
		go c.refresh(key, e, fetch)
	}
	return value
}

func (c *Cache) refresh(key string, e *entry, fetch Fetch) {
	text, err := fetch()

	c.mu.Lock()
	defer c.mu.Unlock()
	// The entry may have been evicted (server disconnected) while the
	// refresh was in flight; in that case there is nothing left to update.
	if c.entries[key] != e {
		return
	}
	if err != nil {
		e.lastValue = fmt.Sprintf("Error: %s", err.Error())
	} else {
		e.lastValue = text
	}
	e.inFlight = false
}

// EvictPrefix drops every key starting with prefix, per spec.md §4.5's
// "on server disconnect, all keys prefixed with <server>. are dropped".
func (c *Cache) EvictPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}
