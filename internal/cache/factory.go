// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"fmt"

	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
)

// CacheFactory creates tiered caches from configuration
type CacheFactory struct {
	// newKV opens the shared tier; replaced in tests
	newKV func(config *CacheConfig) (Cache, error)
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory() *CacheFactory {
	return &CacheFactory{
		newKV: func(config *CacheConfig) (Cache, error) {
			return NewRedisCache(config)
		},
	}
}

// CreateCache builds the tiers selected by config.Backend. An unreachable
// Redis degrades to the memory tier alone.
func (f *CacheFactory) CreateCache(config *CacheConfig) (*TieredCache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}
	if !config.Backend.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCacheType, config.Backend)
	}

	codec, err := NewCodec(config.CompressThreshold)
	if err != nil {
		return nil, err
	}

	var kv Cache
	if config.Enabled && config.Backend == CacheTypeRedis {
		kv, err = f.newKV(config)
		if err != nil {
			log.Warn("kv cache tier unavailable, continuing with memory only: %v", err)
			kv = nil
		}
	}

	return NewTieredCache(NewMemoryCache(config), kv, codec, config), nil
}

// DefaultFactory is the factory used by New.
var DefaultFactory = NewCacheFactory()

// New creates a tiered cache using the default factory
func New(config *CacheConfig) (*TieredCache, error) {
	return DefaultFactory.CreateCache(config)
}
