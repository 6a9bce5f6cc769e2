package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// seenItem 包装过期时间
type seenItem struct {
	expiresAt time.Time
}

// SeenCache 带 TTL 的 LRU 去重缓存
// 爬取过程中用于避免同一用户名在一次运行内被反复 upsert
type SeenCache struct {
	lruCache *lru.Cache[string, seenItem]
	ttl      time.Duration
}

// NewSeenCache 创建去重缓存，size 为 LRU 容量
func NewSeenCache(size int, ttl time.Duration) (*SeenCache, error) {
	l, err := lru.New[string, seenItem](size)
	if err != nil {
		return nil, err
	}
	return &SeenCache{lruCache: l, ttl: ttl}, nil
}

// Seen 返回 key 是否已记录且未过期；未记录时顺便记录
func (c *SeenCache) Seen(key string) bool {
	if item, ok := c.lruCache.Get(key); ok {
		if time.Now().Before(item.expiresAt) {
			return true
		}
		c.lruCache.Remove(key)
	}
	c.lruCache.Add(key, seenItem{expiresAt: time.Now().Add(c.ttl)})
	return false
}
