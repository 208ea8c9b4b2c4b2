package torrents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/example/aninfo/internal/contract"
)

// Cache stores lookup results by normalized request key.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]contract.Torrent, bool, error)
	Set(ctx context.Context, key string, v []contract.Torrent) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
}

// MemoryCache is the in-process fallback when no Redis is configured.
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]contract.Torrent, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	list, ok := v.([]contract.Torrent)
	return list, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, v []contract.Torrent) error {
	m.c.SetDefault(key, v)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *MemoryCache) Flush(_ context.Context) error {
	m.c.Flush()
	return nil
}

// RedisCache shares results between server replicas.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	return &RedisCache{Client: client, TTL: ttl, Prefix: "aninfo:torrents:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]contract.Torrent, bool, error) {
	val, err := c.Client.Get(ctx, c.Prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out []contract.Torrent
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, v []contract.Torrent) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.Prefix+key, b, c.TTL).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.Client.Del(ctx, c.Prefix+key).Err()
}

// Flush removes every key under Prefix.
func (c *RedisCache) Flush(ctx context.Context) error {
	iter := c.Client.Scan(ctx, 0, c.Prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// isFlushAll reports whether an invalidation payload targets every key.
func isFlushAll(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.EqualFold(key, "ALL")
}
