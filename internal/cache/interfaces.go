// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"errors"
	"time"
)

// Cache is a single byte-oriented cache tier.
type Cache interface {
	// Get retrieves a value by key
	Get(ctx context.Context, key string) ([]byte, error)

	// GetWithTTL retrieves a value and its remaining lifetime
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, error)

	// Set stores a value with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key
	Delete(ctx context.Context, key string) error

	// DeletePattern removes all keys matching a glob pattern (only * is special)
	DeletePattern(ctx context.Context, pattern string) error

	// Exists checks if a live key exists
	Exists(ctx context.Context, key string) (bool, error)

	Close() error

	Stats() CacheStats
}

// CacheConfig holds configuration for the tiered cache.
type CacheConfig struct {
	// Enabled turns caching on; when off every lookup goes to the loader
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TTL is the default lifetime of an entry
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Prefix is added to every generated key
	Prefix string `json:"prefix" yaml:"prefix"`

	// Backend selects the tiers: memory only, or memory in front of redis
	Backend CacheType `json:"backend" yaml:"backend"`

	// MaxMemory bounds the in-process tier (bytes)
	MaxMemory int64 `json:"max_memory" yaml:"max_memory"`

	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// CompressThreshold is the encoded size above which values are zstd
	// compressed. Zero disables compression.
	CompressThreshold int `json:"compress_threshold" yaml:"compress_threshold"`

	Redis RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string        `json:"address" yaml:"address"`
	Password     string        `json:"password" yaml:"password"`
	Database     int           `json:"database" yaml:"database"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	MaxConnAge   time.Duration `json:"max_conn_age" yaml:"max_conn_age"`

	// Cluster switches to a cluster client over Addresses
	Cluster ClusterConfig `json:"cluster" yaml:"cluster"`
}

// ClusterConfig holds Redis cluster configuration
type ClusterConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Addresses []string `json:"addresses" yaml:"addresses"`
}

// CacheStats provides tier performance statistics
type CacheStats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRatio    float64 `json:"hit_ratio"`
	Keys        int64   `json:"keys"`
	MemoryUsage int64   `json:"memory_usage"`
	Evictions   int64   `json:"evictions"`
}

func hitRatio(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

// Common cache errors
var (
	// ErrKeyNotFound is returned when a key is not found in cache
	ErrKeyNotFound = errors.New("key not found")

	// ErrCacheUnavailable is returned when cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrInvalidCacheType is returned when cache type is invalid
	ErrInvalidCacheType = errors.New("invalid cache type")

	// ErrCacheDisabled is returned when the cache is disabled or closed
	ErrCacheDisabled = errors.New("cache disabled")

	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// ErrInvalidKey is returned for an empty key or pattern
	ErrInvalidKey = errors.New("invalid cache key")
)

// DefaultCacheConfig returns default cache configuration
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:           true,
		TTL:               5 * time.Minute,
		Prefix:            "warpcms:",
		Backend:           CacheTypeMemory,
		MaxMemory:         64 * 1024 * 1024,
		CleanupInterval:   time.Minute,
		CompressThreshold: 4 * 1024,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			MaxConnAge:   30 * time.Minute,
		},
	}
}

// CacheType represents the cache tier layout
type CacheType string

const (
	// CacheTypeMemory is an in-process tier only
	CacheTypeMemory CacheType = "memory"

	// CacheTypeRedis puts the in-process tier in front of Redis
	CacheTypeRedis CacheType = "redis"
)

// IsValid checks if the cache type is valid
func (ct CacheType) IsValid() bool {
	switch ct {
	case CacheTypeMemory, CacheTypeRedis:
		return true
	default:
		return false
	}
}
