package patterns

import (
	"container/list"
	"regexp"
	"sync"
)

const cacheCapacity = 128

// RegexCache is a bounded, mutex-protected cache of compiled patterns,
// keyed on the exact source text handed to Compile. It exists so that
// repeatedly loading the same custom/pattern-config source (config reload,
// per-request filter expressions) doesn't recompile the same regex over
// and over.
type RegexCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List
	capacity int
}

type cacheEntry struct {
	key string
	re  *regexp.Regexp
}

// NewRegexCache builds an empty cache with the default capacity (128,
// matching the Python original's lru_cache ceiling).
func NewRegexCache() *RegexCache {
	return &RegexCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: cacheCapacity,
	}
}

// Compile returns a compiled regexp for source, reusing a cached copy when
// present and evicting the least recently used entry once the cache is full.
func (c *RegexCache) Compile(source string) (*regexp.Regexp, error) {
	c.mu.Lock()
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return el.Value.(*cacheEntry).re, nil
	}
	c.mu.Unlock()

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have compiled and inserted the same source
	// while we held no lock; prefer the existing entry to keep one
	// canonical *regexp.Regexp per source.
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).re, nil
	}

	el := c.order.PushFront(&cacheEntry{key: source, re: re})
	c.entries[source] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}

	return re, nil
}

// Len reports how many compiled patterns are currently cached.
func (c *RegexCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
