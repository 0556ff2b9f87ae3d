package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss (or a disabled client) returns false with no error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLQuote   = 15 * time.Second // 실시간 시세
	TTLNav     = 10 * time.Minute // 전일 기준가
	TTLProfile = 24 * time.Hour   // 펀드 개요 (추적지수)
	TTLDaily   = 24 * time.Hour   // 분기 보유종목
)

// NavKey caches the last published NAV of a fund
func NavKey(fundCode string) string {
	return fmt.Sprintf("fund:nav:%s", fundCode)
}

// HoldingsKey caches the top-N holdings of a fund
func HoldingsKey(fundCode string, topN int) string {
	return fmt.Sprintf("fund:holdings:%s:%d", fundCode, topN)
}

// ProfileKey caches the tracking-index candidates of a fund
func ProfileKey(fundCode string) string {
	return fmt.Sprintf("fund:index:%s", fundCode)
}

// QuoteKey caches a single instrument's change percent
func QuoteKey(symbol string) string {
	return fmt.Sprintf("quote:change:%s", symbol)
}
