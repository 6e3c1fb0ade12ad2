package resolver

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// ttlCache is an LRU bounded map whose entries each carry their own expiry.
// A capacity of zero means unbounded.
type ttlCache[T any] struct {
	mu       sync.Mutex
	order    *list.List
	index    map[string]*list.Element
	capacity int
	now      func() time.Time
}

func newTTLCache[T any](capacity int) *ttlCache[T] {
	return &ttlCache[T]{
		order:    list.New(),
		index:    make(map[string]*list.Element),
		capacity: capacity,
		now:      time.Now,
	}
}

func (c *ttlCache[T]) Resize(n int) {
	c.mu.Lock()
	c.capacity = n
	c.trim()
	c.mu.Unlock()
}

// Get returns a live entry and marks it most recently used. Expired entries
// are dropped on the way.
func (c *ttlCache[T]) Get(k string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.index[k]
	if !ok {
		var zero T
		return zero, false
	}
	e := el.Value.(cacheEntry[T])
	if !c.now().Before(e.expires) {
		c.remove(el)
		var zero T
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// SetTTL stores v under k for d. A non-positive d drops any existing entry.
func (c *ttlCache[T]) SetTTL(k string, v T, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, exists := c.index[k]
	switch {
	case d <= 0:
		if exists {
			c.remove(el)
		}
	case exists:
		el.Value = cacheEntry[T]{key: k, value: v, expires: c.now().Add(d)}
		c.order.MoveToFront(el)
	default:
		c.index[k] = c.order.PushFront(cacheEntry[T]{key: k, value: v, expires: c.now().Add(d)})
		c.trim()
	}
}

func (c *ttlCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *ttlCache[T]) Clear() {
	c.mu.Lock()
	c.order.Init()
	clear(c.index)
	c.mu.Unlock()
}

func (c *ttlCache[T]) remove(el *list.Element) {
	delete(c.index, el.Value.(cacheEntry[T]).key)
	c.order.Remove(el)
}

// trim evicts least recently used entries beyond capacity. Callers hold mu.
func (c *ttlCache[T]) trim() {
	for c.capacity > 0 && c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}
