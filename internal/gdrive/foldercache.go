package gdrive

import "sync"

// folderCache memoizes remote ids by composed name for the lifetime of the
// process. Drive has no native create-if-absent, so the adapter does a
// list-then-create sequence; the cache keeps repeat jobs for the same event
// from re-listing every time.
type folderCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func newFolderCache() *folderCache {
	return &folderCache{
		m: make(map[string]string),
	}
}

func (c *folderCache) Get(key string) (string, bool) {
	c.mu.RLock()
	id, ok := c.m[key]
	c.mu.RUnlock()
	return id, ok
}

func (c *folderCache) Set(key, id string) {
	c.mu.Lock()
	c.m[key] = id
	c.mu.Unlock()
}

func (c *folderCache) Clear() {
	c.mu.Lock()
	c.m = make(map[string]string)
	c.mu.Unlock()
}
