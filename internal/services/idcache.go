package services

import "sync"

// IDCache maps channel logins to the provider's internal numeric ids.
//
// Entries are only ever added. A concurrent miss on the same login may trigger two lookups; the later write is
// ignored.
type IDCache struct {
	mu  sync.RWMutex
	ids map[string]int64
}

// NewIDCache creates an empty cache.
func NewIDCache() *IDCache {
	return &IDCache{ids: make(map[string]int64)}
}

func (c *IDCache) Get(login string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[login]
	return id, ok
}

// Put stores id for login unless it is already known.
func (c *IDCache) Put(login string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[login]; !ok {
		c.ids[login] = id
	}
}

func (c *IDCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
