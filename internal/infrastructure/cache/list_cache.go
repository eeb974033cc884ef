package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ListCache caches list responses per tenant and resource. Invalidate drops every
// cached page of a resource at once, which is how writes revalidate the lists.
//
// Each tenant/resource pair carries a generation that Invalidate bumps. Get
// returns the generation it read, and Set only stores under that generation,
// so a page loaded before a write can never be cached after it.
type ListCache interface {
	// Get decodes the cached value into dst and reports whether it was found
	Get(ctx context.Context, tenantID uuid.UUID, resource, key string, dst any) (gen int64, found bool, err error)
	Set(ctx context.Context, tenantID uuid.UUID, resource string, gen int64, key string, value any) error
	Invalidate(ctx context.Context, tenantID uuid.UUID, resources ...string) error
}

// QueryKey hashes the parts of a list request into a cache key
func QueryKey(parts ...any) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, p := range parts {
		_ = enc.Encode(p)
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// RedisListCache versions each tenant/resource pair with a generation counter.
// Entries embed the generation in their key, so bumping it orphans them until
// their TTL runs out.
type RedisListCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisListCache creates a list cache on client
func NewRedisListCache(client redis.UniversalClient, ttl time.Duration) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl, prefix: "list:"}
}

func (c *RedisListCache) genKey(tenantID uuid.UUID, resource string) string {
	return c.prefix + tenantID.String() + ":" + resource + ":gen"
}

func (c *RedisListCache) entryKey(tenantID uuid.UUID, resource string, gen int64, key string) string {
	return c.prefix + tenantID.String() + ":" + resource + ":" + strconv.FormatInt(gen, 10) + ":" + key
}

// Get implements ListCache
func (c *RedisListCache) Get(ctx context.Context, tenantID uuid.UUID, resource, key string, dst any) (int64, bool, error) {
	gen, err := c.client.Get(ctx, c.genKey(tenantID, resource)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, false, fmt.Errorf("list cache: %w", err)
	}
	k := c.entryKey(tenantID, resource, gen, key)
	raw, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return gen, false, nil
	}
	if err != nil {
		return gen, false, fmt.Errorf("list cache: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return gen, false, fmt.Errorf("list cache: decode %s: %w", k, err)
	}
	return gen, true, nil
}

// Set implements ListCache. A write for an invalidated generation lands on an
// orphaned key and is never read.
func (c *RedisListCache) Set(ctx context.Context, tenantID uuid.UUID, resource string, gen int64, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("list cache: encode: %w", err)
	}
	return c.client.Set(ctx, c.entryKey(tenantID, resource, gen, key), raw, c.ttl).Err()
}

// Invalidate implements ListCache
func (c *RedisListCache) Invalidate(ctx context.Context, tenantID uuid.UUID, resources ...string) error {
	pipe := c.client.TxPipeline()
	for _, r := range resources {
		pipe.Incr(ctx, c.genKey(tenantID, r))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("list cache: invalidate: %w", err)
	}
	return nil
}

var _ ListCache = (*RedisListCache)(nil)

type listEntry struct {
	raw       []byte
	expiresAt time.Time
}

// MemoryListCache is the in-process ListCache
type MemoryListCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]map[string]listEntry // tenant:resource -> key -> entry
	gens    map[string]int64
	now     func() time.Time
}

// NewMemoryListCache creates an empty in-memory list cache
func NewMemoryListCache(ttl time.Duration) *MemoryListCache {
	return &MemoryListCache{
		ttl:     ttl,
		entries: make(map[string]map[string]listEntry),
		gens:    make(map[string]int64),
		now:     time.Now,
	}
}

func bucket(tenantID uuid.UUID, resource string) string {
	return tenantID.String() + ":" + resource
}

// Get implements ListCache
func (c *MemoryListCache) Get(_ context.Context, tenantID uuid.UUID, resource, key string, dst any) (int64, bool, error) {
	b := bucket(tenantID, resource)
	c.mu.Lock()
	gen := c.gens[b]
	e, ok := c.entries[b][key]
	if ok && c.now().After(e.expiresAt) {
		delete(c.entries[b], key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return gen, false, nil
	}
	if err := json.Unmarshal(e.raw, dst); err != nil {
		return gen, false, fmt.Errorf("list cache: decode: %w", err)
	}
	return gen, true, nil
}

// Set implements ListCache. Writes for a stale generation are dropped.
func (c *MemoryListCache) Set(_ context.Context, tenantID uuid.UUID, resource string, gen int64, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("list cache: encode: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	b := bucket(tenantID, resource)
	if c.gens[b] != gen {
		return nil
	}
	if c.entries[b] == nil {
		c.entries[b] = make(map[string]listEntry)
	}
	c.entries[b][key] = listEntry{raw: raw, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Invalidate implements ListCache
func (c *MemoryListCache) Invalidate(_ context.Context, tenantID uuid.UUID, resources ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range resources {
		b := bucket(tenantID, r)
		c.gens[b]++
		delete(c.entries, b)
	}
	return nil
}

var _ ListCache = (*MemoryListCache)(nil)

// NopListCache never caches
type NopListCache struct{}

func (NopListCache) Get(context.Context, uuid.UUID, string, string, any) (int64, bool, error) {
	return 0, false, nil
}
func (NopListCache) Set(context.Context, uuid.UUID, string, int64, string, any) error { return nil }
func (NopListCache) Invalidate(context.Context, uuid.UUID, ...string) error          { return nil }
