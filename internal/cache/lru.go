// Package cache provides a small in-process LRU with per-entry TTL, used for
// month aggregates that are cheap to recompute but hot to serve.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type entry[T any] struct {
	key      string
	value    T
	deadline time.Time
}

// LRUCache evicts the least recently used entry once maxEntries is exceeded.
// Reads past an entry's TTL behave as misses and drop the entry in place.
type LRUCache[T any] struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	byKey      map[string]*list.Element
	order      *list.List // front is most recent
}

func NewLRUCache[T any](maxEntries int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxEntries: maxEntries,
		ttl:        ttl,
		byKey:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.byKey[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if time.Now().After(e.deadline) {
		c.drop(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set inserts or refreshes key. Either way the entry becomes the most recent
// and gets a fresh TTL.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, value: value, deadline: time.Now().Add(c.ttl)}
	if el, ok := c.byKey[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}

	c.byKey[key] = c.order.PushFront(e)
	if c.order.Len() > c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.drop(oldest)
		}
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byKey[key]; ok {
		c.drop(el)
	}
}

// DeletePrefix removes every key starting with prefix and returns the count.
// With keys namespaced by owner, this evicts one owner's entries and nobody
// else's.
func (c *LRUCache[T]) DeletePrefix(prefix string) int {
	return c.dropMatching(func(e *entry[T]) bool {
		return strings.HasPrefix(e.key, prefix)
	})
}

// CleanExpired removes every entry past its TTL and returns the count.
func (c *LRUCache[T]) CleanExpired() int {
	now := time.Now()
	return c.dropMatching(func(e *entry[T]) bool {
		return now.After(e.deadline)
	})
}

func (c *LRUCache[T]) dropMatching(match func(*entry[T]) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	el := c.order.Front()
	for el != nil {
		next := el.Next()
		if match(el.Value.(*entry[T])) {
			c.drop(el)
			dropped++
		}
		el = next
	}
	return dropped
}

// drop removes an element; the caller holds the lock.
func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.byKey, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}
