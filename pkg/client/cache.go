// Package client 响应缓存
package client

import (
	"sync"
	"time"
)

// DefaultCacheTTL 缓存条目的默认存活时间
const DefaultCacheTTL = 30 * time.Second

// Cache 带 TTL 的键值缓存
//
// 缓存按查询参数做键，任何成功的变更操作整体清空缓存：
// 数据集很小、变更频率低，粗粒度失效换取正确性。
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     any
	writtenAt time.Time
}

// NewCache 创建缓存，ttl<=0 时使用默认值
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get 返回未过期的缓存值；过期条目被逐出并按未命中处理
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(e.writtenAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set 写入缓存并记录写入时间
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, writtenAt: time.Now()}
}

// Clear 清空全部缓存
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len 当前条目数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
