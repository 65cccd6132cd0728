// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// scanBatch is the COUNT hint used while scanning for pattern deletes.
const scanBatch = 100

// RedisCache is the shared key/value tier.
type RedisCache struct {
	client redis.UniversalClient
	hits   int64
	misses int64
}

// NewRedisCache connects to Redis (single node or cluster) and pings it.
func NewRedisCache(config *CacheConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	var client redis.UniversalClient
	if config.Redis.Cluster.Enabled && len(config.Redis.Cluster.Addresses) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        config.Redis.Cluster.Addresses,
			Password:     config.Redis.Password,
			PoolSize:     config.Redis.PoolSize,
			MinIdleConns: config.Redis.MinIdleConns,
			MaxConnAge:   config.Redis.MaxConnAge,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         config.Redis.Address,
			Password:     config.Redis.Password,
			DB:           config.Redis.Database,
			PoolSize:     config.Redis.PoolSize,
			MinIdleConns: config.Redis.MinIdleConns,
			MaxConnAge:   config.Redis.MaxConnAge,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from Redis
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddInt64(&r.misses, 1)
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	atomic.AddInt64(&r.hits, 1)
	return result, nil
}

// GetWithTTL returns both value and remaining TTL in one round trip
func (r *RedisCache) GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error) {
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("redis pipeline error: %w", err)
	}

	value, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddInt64(&r.misses, 1)
			return nil, 0, ErrKeyNotFound
		}
		return nil, 0, fmt.Errorf("redis get error: %w", err)
	}

	ttl, err := ttlCmd.Result()
	if err != nil || ttl < 0 {
		ttl = 0
	}

	atomic.AddInt64(&r.hits, 1)
	return value, ttl, nil
}

// Set stores a value with TTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete removes a key
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// DeletePattern removes all keys matching pattern using SCAN so the server
// is never blocked by KEYS. In cluster mode every master is scanned.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return ErrInvalidKey
	}

	match := escapeGlob(pattern)
	if cluster, ok := r.client.(*redis.ClusterClient); ok {
		// SCAN only walks the node it is sent to
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return scanDelete(ctx, node, match, true)
		})
	}
	return scanDelete(ctx, r.client, match, false)
}

// scanDelete deletes the keys matching match on a single node. perKey issues
// one DEL per key, needed when a batch may span hash slots.
func scanDelete(ctx context.Context, c redis.Cmdable, match string, perKey bool) error {
	var cursor uint64
	for {
		keys, next, err := c.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := deleteKeys(ctx, c, keys, perKey); err != nil {
				return fmt.Errorf("redis batch delete error: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func deleteKeys(ctx context.Context, c redis.Cmdable, keys []string, perKey bool) error {
	if !perKey {
		return c.Del(ctx, keys...).Err()
	}
	_, err := c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Del(ctx, k)
		}
		return nil
	})
	return err
}

// escapeGlob escapes the Redis glob metacharacters other than *.
func escapeGlob(pattern string) string {
	return strings.NewReplacer(`\`, `\\`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(pattern)
}

// Exists checks if a key exists
func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return n > 0, nil
}

// Ping tests the Redis connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Stats returns hit counters plus what INFO reports about memory and keys
func (r *RedisCache) Stats() CacheStats {
	hits := atomic.LoadInt64(&r.hits)
	misses := atomic.LoadInt64(&r.misses)
	stats := CacheStats{Hits: hits, Misses: misses, HitRatio: hitRatio(hits, misses)}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if info, err := r.client.Info(ctx, "memory", "keyspace").Result(); err == nil {
		stats.MemoryUsage, stats.Keys = parseInfo(info)
	}
	return stats
}

// parseInfo extracts used_memory and the total key count from INFO output,
// e.g. "used_memory:1024" and "db0:keys=10,expires=0,avg_ttl=0".
func parseInfo(info string) (memory, keys int64) {
	for _, line := range strings.Split(info, "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if name == "used_memory" {
			memory, _ = strconv.ParseInt(value, 10, 64)
			continue
		}
		if !strings.HasPrefix(name, "db") {
			continue
		}
		for _, pair := range strings.Split(value, ",") {
			if n, found := strings.CutPrefix(pair, "keys="); found {
				if k, err := strconv.ParseInt(n, 10, 64); err == nil {
					keys += k
				}
			}
		}
	}
	return memory, keys
}
