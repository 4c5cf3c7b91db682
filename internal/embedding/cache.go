package embedding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultCacheCapacity is the default bound on cached embeddings.
const DefaultCacheCapacity = 512

// Cache memoizes text->vector lookups to avoid redundant embedding calls.
// Keys are the raw input text; callers must pass consistent text to
// benefit. Once the capacity is reached, the oldest 25% of entries by
// insertion order are evicted in one batch. Safe for concurrent use.
// The cache is empty at process start; nothing is persisted.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	counter  uint64
	capacity int
}

type cacheEntry struct {
	embedding   Vector
	insertOrder uint64
}

// NewCache creates a cache bounded at capacity entries. A capacity <= 0
// falls back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		entries:  make(map[string]cacheEntry),
		capacity: capacity,
	}
}

// Get returns the cached embedding for text, if present.
func (c *Cache) Get(text string) (Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	return e.embedding, true
}

// Put stores an embedding, evicting the oldest quarter first when full.
func (c *Cache) Put(text string, vec Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.capacity {
		c.evictOldestQuarter()
	}
	c.counter++
	c.entries[text] = cacheEntry{embedding: vec, insertOrder: c.counter}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestQuarter removes the oldest 25% of entries by insertion
// order. When len/4 rounds to 0 the whole cache is cleared instead.
// Caller holds c.mu.
func (c *Cache) evictOldestQuarter() {
	toRemove := len(c.entries) / 4
	if toRemove == 0 {
		c.entries = make(map[string]cacheEntry)
		return
	}
	type aged struct {
		key   string
		order uint64
	}
	byAge := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		byAge = append(byAge, aged{key: k, order: e.insertOrder})
	}
	sort.Slice(byAge, func(i, j int) bool { return byAge[i].order < byAge[j].order })
	for _, a := range byAge[:toRemove] {
		delete(c.entries, a.key)
	}
}

// CachedEmbedder wraps an Embedder with a Cache so repeated texts are
// embedded once per process.
type CachedEmbedder struct {
	provider Embedder
	cache    *Cache
}

// NewCachedEmbedder wraps provider with cache. A nil cache gets the
// default capacity.
func NewCachedEmbedder(provider Embedder, cache *Cache) *CachedEmbedder {
	if cache == nil {
		cache = NewCache(DefaultCacheCapacity)
	}
	return &CachedEmbedder{provider: provider, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}
	vec, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(text, vec)
	return vec, nil
}

func (e *CachedEmbedder) Dims() int { return e.provider.Dims() }
