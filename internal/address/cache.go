package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores loaded unit lists.
type Cache interface {
	Get(ctx context.Context, key string) ([]Unit, bool, error)
	Set(ctx context.Context, key string, units []Unit, ttl time.Duration) error
}

const keyPrefix = "address:"

func provincesKey() string {
	return keyPrefix + "provinces"
}

func districtsKey(provinceCode string) string {
	return keyPrefix + "districts:" + provinceCode
}

func wardsKey(districtCode string) string {
	return keyPrefix + "wards:" + districtCode
}

// RedisCache keeps unit lists as JSON strings.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Unit, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var units []Unit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return units, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, units []Unit, ttl time.Duration) error {
	data, err := json.Marshal(units)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

type memoryEntry struct {
	units     []Unit
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used when Redis is not configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]Unit, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return append([]Unit(nil), entry.units...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, units []Unit, ttl time.Duration) error {
	entry := memoryEntry{units: append([]Unit(nil), units...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}
