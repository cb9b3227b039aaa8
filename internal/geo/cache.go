package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geogate:country:"

// Cache stores resolved country codes with a per-entry TTL. Implementations
// must never return an entry past its TTL.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, code string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheKey derives the lookup key for ip.
func CacheKey(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

type memoryItem struct {
	code      string
	expiresAt time.Time
}

// MemoryCache is a size-bounded in-process cache. Least recently used
// entries are evicted once size is reached; expired entries are dropped on
// read.
type MemoryCache struct {
	items *lru.Cache[string, memoryItem]
	now   func() time.Time
}

// NewMemoryCache returns a cache holding at most size entries.
func NewMemoryCache(size int) (*MemoryCache, error) {
	if size <= 0 {
		size = 1
	}
	items, err := lru.New[string, memoryItem](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{items: items, now: time.Now}, nil
}

// SetClock overrides the time source.
func (m *MemoryCache) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	item, ok := m.items.Get(key)
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(item.expiresAt) {
		m.items.Remove(key)
		return "", false, nil
	}
	return item.code, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key, code string, ttl time.Duration) error {
	m.items.Add(key, memoryItem{code: code, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.items.Remove(key)
	return nil
}

// Len returns the number of entries currently held, expired or not.
func (m *MemoryCache) Len() int { return m.items.Len() }

// RedisCache shares resolutions between gate instances. Redis enforces the
// TTL itself.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisCacheFromURL parses a redis:// URL and connects lazily.
func NewRedisCacheFromURL(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisCache(redis.NewClient(opts)), nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	code, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key, code string, ttl time.Duration) error {
	return r.client.Set(ctx, key, code, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (r *RedisCache) Close() error { return r.client.Close() }
