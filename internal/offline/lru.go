package offline

import (
	"container/list"
	"sync"
)

// CacheStatus is the remembered offline availability of a (url, lang) pair.
type CacheStatus int

const (
	NotCached CacheStatus = iota
	CachedReadingList
	CachedFullArchive
)

// statusCache is a bounded LRU of (url, lang) key to CacheStatus. It exists
// to avoid redundant offline-object index lookups for repeated requests to
// the same resource. Entries can go stale if backing files are deleted
// out-of-band; callers demote to NotCached when a detected miss occurs.
type statusCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element
}

type statusEntry struct {
	key    string
	status CacheStatus
}

func newStatusCache(capacity int) *statusCache {
	if capacity <= 0 {
		capacity = 64
	}
	return &statusCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the remembered status for key and whether it was present.
func (c *statusCache) Get(key string) (CacheStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return NotCached, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*statusEntry).status, true
}

// Put records the status for key, evicting the least-recently-used entry
// when at capacity.
func (c *statusCache) Put(key string, status CacheStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*statusEntry).status = status
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*statusEntry).key)
		}
	}

	c.items[key] = c.order.PushFront(&statusEntry{key: key, status: status})
}

// Len returns the number of cached entries.
func (c *statusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
