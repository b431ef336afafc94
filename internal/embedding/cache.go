// internal/embedding/cache.go
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores vectors by key. Misses and backend errors both report ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (Vector, bool)
	Set(ctx context.Context, key string, vec Vector)
}

// CacheKey identifies the vector of text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	vec     Vector
	expires time.Time
}

// MemoryCache is a bounded in-process TTL cache.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Vector, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		return Vector{}, false
	}
	return entry.vec, true
}

func (c *MemoryCache) Set(_ context.Context, key string, vec Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{vec: vec, expires: c.now().Add(c.ttl)}
}

// evictLocked drops expired entries, or everything when none has expired.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) >= c.maxEntries {
		c.entries = make(map[string]cacheEntry)
	}
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache keeps vectors in Redis as tagged little-endian blobs.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	onErr  func(error)
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// OnError registers a callback for backend failures, which are otherwise silent.
func (c *RedisCache) OnError(fn func(error)) {
	c.onErr = fn
}

func (c *RedisCache) Get(ctx context.Context, key string) (Vector, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.report(err)
		}
		return Vector{}, false
	}
	vec, err := decodeVector(data)
	if err != nil {
		c.report(err)
		return Vector{}, false
	}
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vec Vector) {
	if err := c.client.Set(ctx, key, encodeVector(vec), c.ttl).Err(); err != nil {
		c.report(err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) report(err error) {
	if c.onErr != nil {
		c.onErr(err)
	}
}

const (
	tagDense  byte = 'd'
	tagSparse byte = 's'
)

// encodeVector writes a tag byte, then float32 values for dense vectors or
// (uint64 key, float32 value) pairs in key order for sparse ones.
func encodeVector(vec Vector) []byte {
	if !vec.IsSparse() {
		buf := make([]byte, 1+4*len(vec.Dense))
		buf[0] = tagDense
		for i, v := range vec.Dense {
			binary.LittleEndian.PutUint32(buf[1+4*i:], math.Float32bits(v))
		}
		return buf
	}

	keys := make([]uint64, 0, len(vec.Sparse))
	for k := range vec.Sparse {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	buf := make([]byte, 1+12*len(keys))
	buf[0] = tagSparse
	for i, k := range keys {
		off := 1 + 12*i
		binary.LittleEndian.PutUint64(buf[off:], k)
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(vec.Sparse[k]))
	}
	return buf
}

func decodeVector(data []byte) (Vector, error) {
	if len(data) == 0 {
		return Vector{}, fmt.Errorf("empty cached vector")
	}
	body := data[1:]
	switch data[0] {
	case tagDense:
		if len(body)%4 != 0 {
			return Vector{}, fmt.Errorf("corrupt cached vector of %d bytes", len(data))
		}
		dense := make([]float32, len(body)/4)
		for i := range dense {
			dense[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
		}
		return DenseVector(dense), nil
	case tagSparse:
		if len(body)%12 != 0 {
			return Vector{}, fmt.Errorf("corrupt cached vector of %d bytes", len(data))
		}
		sparse := make(map[uint64]float32, len(body)/12)
		for off := 0; off < len(body); off += 12 {
			sparse[binary.LittleEndian.Uint64(body[off:])] = math.Float32frombits(binary.LittleEndian.Uint32(body[off+8:]))
		}
		return Vector{Sparse: sparse}, nil
	default:
		return Vector{}, fmt.Errorf("unknown cached vector tag %q", data[0])
	}
}
