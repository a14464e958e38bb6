// Package querycache caches API query results keyed by resource and parameters.
package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultStaleAfter is how long a cached result is served without refetching.
	DefaultStaleAfter = 60 * time.Second
	defaultSize       = 256
)

// Resources used as the first element of query keys.
const (
	ResourceSchedule   = "schedule"
	ResourceSubjects   = "subjects"
	ResourceTasks      = "tasks"
	ResourceStatistics = "statistics"
)

// Key identifies a query by its resource and semantic parameters.
type Key struct {
	Resource string
	Params   url.Values
}

// NewKey builds a key from a resource and alternating parameter names and values.
func NewKey(resource string, kv ...string) Key {
	params := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		params.Set(kv[i], kv[i+1])
	}
	return Key{Resource: resource, Params: params}
}

// String renders the key canonically; url.Values.Encode sorts by name.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Resource
	}
	return k.Resource + "?" + k.Params.Encode()
}

// Cache holds query results for a fixed staleness window and collapses
// concurrent fetches of the same key into one call.
//
// Every resource carries a generation that Invalidate and Purge advance. A
// fetch only stores its result when the generation it started under is still
// current, and callers arriving after an invalidation never join a fetch that
// started before it.
type Cache struct {
	lru    *expirable.LRU[string, any]
	group  singleflight.Group
	logger *slog.Logger

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

// New returns a cache whose entries go stale after staleAfter.
func New(logger *slog.Logger, staleAfter time.Duration) *Cache {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Cache{
		lru:    expirable.NewLRU[string, any](defaultSize, nil, staleAfter),
		logger: logger,
		gens:   make(map[string]uint64),
	}
}

// Invalidate drops every entry of the given resources immediately.
func (c *Cache) Invalidate(resources ...string) {
	c.mu.Lock()
	for _, r := range resources {
		c.gens[r]++
	}
	c.mu.Unlock()

	for _, key := range c.lru.Keys() {
		for _, r := range resources {
			if key == r || strings.HasPrefix(key, r+"?") {
				c.lru.Remove(key)
				c.logger.Debug("Invalidated cached query", "key", key)
				break
			}
		}
	}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	c.lru.Purge()
}

func (c *Cache) generation(resource string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch<<32 + c.gens[resource]
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Fetch returns the cached value for key or calls fn to produce it. Failed
// fetches are not cached. A shared fetch runs detached from the caller that
// started it; each caller stops waiting when its own ctx is done.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()
	if v, ok := c.lru.Get(k); ok {
		if typed, ok := v.(T); ok {
			c.logger.Debug("Query cache hit", "key", k)
			return typed, nil
		}
	}

	gen := c.generation(key.Resource)
	flight := k + "#" + strconv.FormatUint(gen, 10)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		res, err := fn(shared)
		if err != nil {
			return nil, err
		}
		if c.generation(key.Resource) == gen {
			c.lru.Add(k, res)
		} else {
			c.logger.Debug("Dropped result invalidated during fetch", "key", k)
		}
		return res, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return zero, r.Err
	}
	typed, ok := r.Val.(T)
	if !ok {
		return zero, fmt.Errorf("cached value for %s has type %T", k, r.Val)
	}
	if r.Shared {
		c.logger.Debug("Query de-duplicated", "key", k)
	}
	return typed, nil
}
