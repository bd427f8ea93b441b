package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares responses between processes through Redis. Bodies are
// stored gzip-compressed under "<prefix><key>".
type RedisCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. A ttl of zero keeps entries forever.
func NewRedisCache(rc *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "osmterrain:resp:"
	}
	return &RedisCache{rc: rc, prefix: prefix, ttl: ttl}
}

// DialRedisCache connects to addr and verifies the connection.
func DialRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewRedisCache(rc, "", ttl), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	compressed, err := c.rc.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return gzipDecompress(compressed)
}

func (c *RedisCache) Put(ctx context.Context, key string, data []byte) error {
	compressed, err := gzipCompress(data)
	if err != nil {
		return fmt.Errorf("failed to compress response %s: %w", key, err)
	}
	if err := c.rc.Set(ctx, c.prefix+key, compressed, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.rc.Close()
}
