package tiles

import "sync"

type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Clear()
	Len() int
}

// MapCache is an unbounded Cache guarded by a RWMutex.
type MapCache[V any] struct {
	cache map[string]V
	mu    sync.RWMutex
}

func NewMapCache[V any]() *MapCache[V] {
	return &MapCache[V]{
		cache: make(map[string]V),
	}
}

func (c *MapCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.cache[key]
	return val, ok
}

func (c *MapCache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.cache[key] = value
	c.mu.Unlock()
}

func (c *MapCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
}

func (c *MapCache[V]) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]V)
	c.mu.Unlock()
}

func (c *MapCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
