package router

import (
	"container/list"
	"sync"
)

// DefaultMaxCacheSize is the match cache capacity used when none is configured.
const DefaultMaxCacheSize = 1000

// cacheEntry is one cached match. Only the cache holds references to it.
type cacheEntry struct {
	key   string
	value RouteMatch
}

// matchCache is a fixed-capacity LRU of positive matches keyed by
// method + ":" + path. Front of the queue is the most recently used entry.
type matchCache struct {
	mu       sync.Mutex
	capacity int
	queue    *list.List
	index    map[string]*list.Element

	// generation is bumped by clear. A set carrying an older generation was
	// computed before a mutation and is dropped.
	generation uint64

	hits      uint64
	misses    uint64
	evictions uint64

	// onEvict is called outside the lock after each eviction.
	onEvict func()
}

func newMatchCache(capacity int, onEvict func()) *matchCache {
	return &matchCache{
		capacity: capacity,
		queue:    list.New(),
		index:    make(map[string]*list.Element, capacity),
		onEvict:  onEvict,
	}
}

func cacheKey(method, path string) string {
	return method + ":" + path
}

// get returns a copy of the cached match for key and promotes it. The second
// result is the current generation, to be passed back to set on a miss.
func (c *matchCache) get(key string) (RouteMatch, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.misses++
		return RouteMatch{}, c.generation, false
	}
	c.hits++
	c.queue.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value.clone(), c.generation, true
}

// set stores a positive match. Negative matches and stale generations are
// ignored. It returns the number of cached entries afterwards and whether
// value was stored.
func (c *matchCache) set(key string, value RouteMatch, generation uint64) (int, bool) {
	if !value.Found {
		return 0, false
	}
	value = value.clone()

	c.mu.Lock()
	if generation != c.generation {
		n := c.queue.Len()
		c.mu.Unlock()
		return n, false
	}

	if elem, ok := c.index[key]; ok {
		elem.Value.(*cacheEntry).value = value
		c.queue.MoveToFront(elem)
		n := c.queue.Len()
		c.mu.Unlock()
		return n, true
	}

	evicted := false
	if c.queue.Len() >= c.capacity {
		if back := c.queue.Back(); back != nil {
			c.queue.Remove(back)
			delete(c.index, back.Value.(*cacheEntry).key)
			c.evictions++
			evicted = true
		}
	}
	c.index[key] = c.queue.PushFront(&cacheEntry{key: key, value: value})
	n := c.queue.Len()
	c.mu.Unlock()

	if evicted && c.onEvict != nil {
		c.onEvict()
	}
	return n, true
}

// contains reports whether key is cached without touching recency or stats.
func (c *matchCache) contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[key]
	return ok
}

// clear drops every entry and starts a new generation.
func (c *matchCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.Init()
	clear(c.index)
	c.generation++
}

// size returns the number of cached entries.
func (c *matchCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

func (c *matchCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:      c.queue.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// keys returns cached keys from most to least recently used.
func (c *matchCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.queue.Len())
	for e := c.queue.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*cacheEntry).key)
	}
	return keys
}
