// Package cache provides a thread-safe LRU cache of parsed expression trees.
//
// Trees are keyed by the canonical token string of the expression (see
// expr.Canonical), so "sin( x )" and "sin(x)" share an entry while distinct
// expressions never do. Cached trees are immutable and may be evaluated by
// many goroutines at once.
package cache

import (
	"container/list"
	"sync"

	"github.com/lemonberrylabs/fnplot/pkg/expr"
)

// entry is a cache entry stored in the doubly-linked list.
type entry struct {
	key  string
	node expr.Node
}

// Cache is an LRU cache of parsed trees. Once capacity is reached the least
// recently used entry is evicted.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

// New creates a cache holding at most capacity trees. A capacity <= 0
// returns nil; a nil *Cache is valid and never caches.
func New(capacity int) *Cache {
	if capacity <= 0 {
		return nil
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the tree for key and marks it most recently used.
func (c *Cache) Get(key string) (expr.Node, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).node, true
}

// Set inserts or replaces the tree for key.
func (c *Cache) Set(key string, node expr.Node) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).node = node
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, node: node})
}

// GetOrParse returns the cached tree for key, or calls parse and caches its
// result. Parse errors are not cached. hit reports whether the tree came
// from the cache.
func (c *Cache) GetOrParse(key string, parse func() (expr.Node, error)) (node expr.Node, hit bool, err error) {
	if node, ok := c.Get(key); ok {
		return node, true, nil
	}
	node, err = parse()
	if err != nil {
		return nil, false, err
	}
	c.Set(key, node)
	return node, false, nil
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// evictLocked removes the least recently used entry.
// Must be called with c.mu held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
