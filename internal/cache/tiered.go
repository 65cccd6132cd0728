// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
)

// Source names the tier that answered a lookup.
type Source string

const (
	SourceMemory   Source = "memory"
	SourceKV       Source = "kv"
	SourceDatabase Source = "database"
)

// Entry is the result of GetWithSource.
type Entry struct {
	Hit    bool
	Source Source
	TTL    time.Duration

	payload []byte
	codec   *Codec
}

// Decode unpacks the cached value into target.
func (e Entry) Decode(target any) error {
	if !e.Hit {
		return ErrKeyNotFound
	}
	return e.codec.Unmarshal(e.payload, target)
}

// Loader produces a value on a cache miss.
type Loader func(ctx context.Context) (any, error)

// TieredCache layers an in-process tier in front of an optional shared kv
// tier. Tier failures are logged and treated as misses; they never fail a
// lookup that a loader can answer.
type TieredCache struct {
	memory Cache
	kv     Cache
	codec  *Codec
	config *CacheConfig

	memoryHits int64
	kvHits     int64
	misses     int64
	loads      int64
	errors     int64
}

// NewTieredCache builds a cache from its tiers. kv may be nil.
func NewTieredCache(memory, kv Cache, codec *Codec, config *CacheConfig) *TieredCache {
	if config == nil {
		config = DefaultCacheConfig()
	}
	return &TieredCache{memory: memory, kv: kv, codec: codec, config: config}
}

// Enabled reports whether lookups consult the tiers at all.
func (tc *TieredCache) Enabled() bool {
	return tc.config.Enabled && tc.memory != nil
}

// GenerateKey builds "<prefix><namespace>:<discriminator>".
func (tc *TieredCache) GenerateKey(namespace, discriminator string) string {
	return tc.config.Prefix + namespace + ":" + discriminator
}

// HashKey returns a stable discriminator for v. encoding/json writes struct
// fields in declaration order and map keys sorted, so equal values always
// hash the same.
func HashKey(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16]), nil
}

// GetWithSource looks key up in memory, then kv. A kv hit is copied into
// memory for the rest of its lifetime.
func (tc *TieredCache) GetWithSource(ctx context.Context, key string) (Entry, error) {
	if !tc.Enabled() {
		return Entry{Source: SourceDatabase}, ErrCacheDisabled
	}

	payload, ttl, err := tc.memory.GetWithTTL(ctx, key)
	if err == nil {
		atomic.AddInt64(&tc.memoryHits, 1)
		return tc.entry(SourceMemory, payload, ttl), nil
	}
	tc.noteError(key, "memory get", err)

	if tc.kv != nil {
		payload, ttl, err = tc.kv.GetWithTTL(ctx, key)
		if err == nil {
			atomic.AddInt64(&tc.kvHits, 1)
			if ttl <= 0 {
				ttl = tc.config.TTL
			}
			tc.noteError(key, "memory backfill", tc.memory.Set(ctx, key, payload, ttl))
			return tc.entry(SourceKV, payload, ttl), nil
		}
		tc.noteError(key, "kv get", err)
	}

	atomic.AddInt64(&tc.misses, 1)
	return Entry{Source: SourceDatabase}, nil
}

func (tc *TieredCache) entry(source Source, payload []byte, ttl time.Duration) Entry {
	return Entry{Hit: true, Source: source, TTL: ttl, payload: payload, codec: tc.codec}
}

// Set encodes value and writes it to every tier. A zero ttl uses the
// configured default.
func (tc *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !tc.Enabled() {
		return ErrCacheDisabled
	}
	payload, err := tc.codec.Marshal(value)
	if err != nil {
		return err
	}
	return tc.setPayload(ctx, key, payload, ttl)
}

func (tc *TieredCache) setPayload(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = tc.config.TTL
	}
	if err := tc.memory.Set(ctx, key, payload, ttl); err != nil {
		return err
	}
	if tc.kv != nil {
		tc.noteError(key, "kv set", tc.kv.Set(ctx, key, payload, ttl))
	}
	return nil
}

// Delete removes key from every tier.
func (tc *TieredCache) Delete(ctx context.Context, key string) error {
	if !tc.Enabled() {
		return nil
	}
	err := tc.memory.Delete(ctx, key)
	if tc.kv != nil {
		err = errors.Join(err, tc.kv.Delete(ctx, key))
	}
	return err
}

// Invalidate removes every key matching pattern from every tier. A trailing
// * matches any suffix, e.g. "warpcms:content:list:<id>:*".
func (tc *TieredCache) Invalidate(ctx context.Context, pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return ErrInvalidKey
	}
	if !tc.Enabled() {
		return nil
	}
	err := tc.memory.DeletePattern(ctx, pattern)
	if tc.kv != nil {
		err = errors.Join(err, tc.kv.DeletePattern(ctx, pattern))
	}
	if err != nil {
		return err
	}
	log.InfoWithContext(ctx, "cache invalidated %s", pattern)
	return nil
}

// GetOrSet decodes the cached value for key into target, or runs loader,
// caches its result and decodes that into target. The returned Source says
// where the value came from.
func (tc *TieredCache) GetOrSet(ctx context.Context, key string, target any, loader Loader) (Source, error) {
	if tc.Enabled() {
		entry, err := tc.GetWithSource(ctx, key)
		if err == nil && entry.Hit {
			if err := entry.Decode(target); err == nil {
				return entry.Source, nil
			}
			// unreadable entry, drop it and reload
			tc.noteError(key, "decode", err)
			_ = tc.Delete(ctx, key)
		}
	}

	value, err := loader(ctx)
	if err != nil {
		return SourceDatabase, err
	}
	atomic.AddInt64(&tc.loads, 1)

	payload, err := tc.codec.Marshal(value)
	if err != nil {
		return SourceDatabase, err
	}
	if tc.Enabled() {
		tc.noteError(key, "set", tc.setPayload(ctx, key, payload, 0))
	}
	return SourceDatabase, tc.codec.Unmarshal(payload, target)
}

func (tc *TieredCache) noteError(key, op string, err error) {
	if err == nil || errors.Is(err, ErrKeyNotFound) {
		return
	}
	atomic.AddInt64(&tc.errors, 1)
	log.Error("cache %s error for key %s: %v", op, key, err)
}

// TieredStats reports lookups by answering tier plus per-tier statistics.
type TieredStats struct {
	MemoryHits int64       `json:"memoryHits"`
	KVHits     int64       `json:"kvHits"`
	Misses     int64       `json:"misses"`
	Loads      int64       `json:"loads"`
	Errors     int64       `json:"errors"`
	Memory     CacheStats  `json:"memory"`
	KV         *CacheStats `json:"kv,omitempty"`
}

// Stats returns current statistics.
func (tc *TieredCache) Stats() TieredStats {
	stats := TieredStats{
		MemoryHits: atomic.LoadInt64(&tc.memoryHits),
		KVHits:     atomic.LoadInt64(&tc.kvHits),
		Misses:     atomic.LoadInt64(&tc.misses),
		Loads:      atomic.LoadInt64(&tc.loads),
		Errors:     atomic.LoadInt64(&tc.errors),
	}
	if tc.memory != nil {
		stats.Memory = tc.memory.Stats()
	}
	if tc.kv != nil {
		kv := tc.kv.Stats()
		stats.KV = &kv
	}
	return stats
}

// Close closes every tier and the codec.
func (tc *TieredCache) Close() error {
	var err error
	if tc.memory != nil {
		err = tc.memory.Close()
	}
	if tc.kv != nil {
		err = errors.Join(err, tc.kv.Close())
	}
	if tc.codec != nil {
		tc.codec.Close()
	}
	return err
}
