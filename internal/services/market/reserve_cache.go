package market

import (
	"container/list"
	"sync"
	"time"
)

// ExpiringLRUCache is a thread-safe bounded LRU cache whose entries also expire after ttl.
// It fronts on-chain reads so repeated checks of one pair do not hit the RPC endpoint.
type ExpiringLRUCache[K comparable, V any] struct {
	mu      sync.Mutex
	cache   map[K]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func NewExpiringLRUCache[K comparable, V any](maxSize int, ttl time.Duration) *ExpiringLRUCache[K, V] {
	return &ExpiringLRUCache[K, V]{
		cache:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a live entry and moves it to front. Expired entries are dropped on access.
func (c *ExpiringLRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.cache[key]
	if !ok {
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	if !c.now().Before(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.cache, key)
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return entry.value, true
}

func (c *ExpiringLRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	for len(c.cache) >= c.maxSize {
		c.evictLRU()
	}

	elem := c.lru.PushFront(&lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.cache[key] = elem
}

// evictLRU removes the least recently used entry
// Must be called with mu held
func (c *ExpiringLRUCache[K, V]) evictLRU() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*lruEntry[K, V])
	c.lru.Remove(back)
	delete(c.cache, entry.key)
}

func (c *ExpiringLRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear drops everything; called after a snapshot swap so cached checks never outlive their snapshot.
func (c *ExpiringLRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[K]*list.Element, c.maxSize)
	c.lru.Init()
}
