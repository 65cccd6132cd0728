// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// itemOverhead approximates per-entry bookkeeping bytes.
const itemOverhead = 64

type memoryItem struct {
	key        string
	value      []byte
	expiration time.Time
}

func (it *memoryItem) size() int64 {
	return int64(len(it.key) + len(it.value) + itemOverhead)
}

// MemoryCache is an in-process LRU tier with per-entry TTL.
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	order     *list.List // front is most recently used
	maxMemory int64
	used      int64
	closed    bool

	hits      int64
	misses    int64
	evictions int64

	stop     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewMemoryCache creates a memory tier and starts its expiry sweeper.
func NewMemoryCache(config *CacheConfig) *MemoryCache {
	if config == nil {
		config = DefaultCacheConfig()
	}
	c := &MemoryCache{
		items:     make(map[string]*list.Element),
		order:     list.New(),
		maxMemory: config.MaxMemory,
		stop:      make(chan struct{}),
		now:       time.Now,
	}
	if config.CleanupInterval > 0 {
		go c.sweep(config.CleanupInterval)
	}
	return c
}

// Get retrieves a value from the memory tier
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, _, err := c.GetWithTTL(ctx, key)
	return value, err
}

// GetWithTTL returns a copy of the value and its remaining lifetime
func (c *MemoryCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, 0, ErrCacheDisabled
	}

	el, ok := c.items[key]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, 0, ErrKeyNotFound
	}
	it := el.Value.(*memoryItem)
	remaining := it.expiration.Sub(c.now())
	if remaining <= 0 {
		c.removeElement(el)
		atomic.AddInt64(&c.misses, 1)
		return nil, 0, ErrKeyNotFound
	}

	c.order.MoveToFront(el)
	atomic.AddInt64(&c.hits, 1)
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, remaining, nil
}

// Set stores a copy of value
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCacheDisabled
	}

	it := &memoryItem{
		key:        key,
		value:      append([]byte(nil), value...),
		expiration: c.now().Add(ttl),
	}
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	c.items[key] = c.order.PushFront(it)
	c.used += it.size()
	c.evict()
	return nil
}

// Delete removes a key
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// DeletePattern removes every key matching pattern
func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return ErrInvalidKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.items {
		if matchPattern(key, pattern) {
			c.removeElement(el)
		}
	}
	return nil
}

// Exists checks if a live key exists
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return c.now().Before(el.Value.(*memoryItem).expiration), nil
}

// Close stops the sweeper and drops every entry
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.used = 0
	c.closed = true
	return nil
}

// Stats returns tier statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	keys := int64(len(c.items))
	used := c.used
	c.mu.Unlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	return CacheStats{
		Hits:        hits,
		Misses:      misses,
		HitRatio:    hitRatio(hits, misses),
		Keys:        keys,
		MemoryUsage: used,
		Evictions:   atomic.LoadInt64(&c.evictions),
	}
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, el := range c.items {
		if !now.Before(el.Value.(*memoryItem).expiration) {
			c.removeElement(el)
		}
	}
}

// evict drops least recently used entries until under maxMemory.
// Caller holds mu.
func (c *MemoryCache) evict() {
	if c.maxMemory <= 0 {
		return
	}
	for c.used > c.maxMemory && c.order.Len() > 1 {
		c.removeElement(c.order.Back())
		atomic.AddInt64(&c.evictions, 1)
	}
}

// removeElement unlinks el. Caller holds mu.
func (c *MemoryCache) removeElement(el *list.Element) {
	it := el.Value.(*memoryItem)
	c.order.Remove(el)
	delete(c.items, it.key)
	c.used -= it.size()
}

// matchPattern implements glob matching where * matches any run of
// characters.
func matchPattern(text, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return text == pattern
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(text, parts[0]) {
		return false
	}
	text = text[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(text, part)
		if i < 0 {
			return false
		}
		text = text[i+len(part):]
	}
	return strings.HasSuffix(text, last)
}
