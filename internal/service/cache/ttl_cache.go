package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	v   V
	exp time.Time
}

// TTL is a small in-process cache with per-entry expiry. Used to bound
// external consensus query cost; not shared across processes.
type TTL[V any] struct {
	mu sync.RWMutex
	m  map[string]entry[V]
}

func NewTTL[V any]() *TTL[V] {
	return &TTL[V]{m: make(map[string]entry[V])}
}

func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	var zero V
	if !ok {
		return zero, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return zero, false
	}
	return e.v, true
}

func (c *TTL[V]) Set(key string, v V, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = entry[V]{v: v, exp: exp}
	c.mu.Unlock()
}
