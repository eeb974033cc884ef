package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyState is the state of an idempotency key
type IdempotencyState int

const (
	// KeyNew means the caller reserved the key and must run the request
	KeyNew IdempotencyState = iota
	// KeyInFlight means another request with the key is still running
	KeyInFlight
	// KeyCompleted means a stored response can be replayed
	KeyCompleted
)

// StoredResponse is a response kept for replay
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	// Fingerprint identifies the request body so a reused key with a different payload is rejected
	Fingerprint string `json:"fingerprint"`
}

// IdempotencyStore reserves request keys and stores their responses
type IdempotencyStore interface {
	// Begin reserves key. When it was already used, the state tells why and a
	// completed key comes with its response.
	Begin(ctx context.Context, key string, ttl time.Duration) (IdempotencyState, *StoredResponse, error)
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	// Release forgets a reservation whose request failed, so it can be retried
	Release(ctx context.Context, key string) error
}

const pendingMarker = "pending"

// RedisIdempotencyStore implements IdempotencyStore with SETNX reservations
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore creates a store on client
func NewRedisIdempotencyStore(client redis.UniversalClient) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: "idempotency:"}
}

// Begin implements IdempotencyStore
func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string, ttl time.Duration) (IdempotencyState, *StoredResponse, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, pendingMarker, ttl).Result()
	if err != nil {
		return KeyNew, nil, fmt.Errorf("idempotency: reserve: %w", err)
	}
	if ok {
		return KeyNew, nil, nil
	}
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; let the caller retry the request
		return KeyInFlight, nil, nil
	}
	if err != nil {
		return KeyNew, nil, fmt.Errorf("idempotency: load: %w", err)
	}
	return decodeStored(raw)
}

// Complete implements IdempotencyStore
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// Release implements IdempotencyStore
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func decodeStored(raw []byte) (IdempotencyState, *StoredResponse, error) {
	if string(raw) == pendingMarker {
		return KeyInFlight, nil, nil
	}
	var resp StoredResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return KeyNew, nil, fmt.Errorf("idempotency: decode: %w", err)
	}
	return KeyCompleted, &resp, nil
}

var _ IdempotencyStore = (*RedisIdempotencyStore)(nil)

type idempotencyEntry struct {
	resp      *StoredResponse
	expiresAt time.Time
}

// MemoryIdempotencyStore keeps keys in process and sweeps expired ones in the background
type MemoryIdempotencyStore struct {
	mu        sync.Mutex
	entries   map[string]idempotencyEntry
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryIdempotencyStore creates the store and starts its sweeper
func NewMemoryIdempotencyStore(sweepEvery time.Duration) *MemoryIdempotencyStore {
	s := &MemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweep(sweepEvery)
	return s
}

// Begin implements IdempotencyStore
func (s *MemoryIdempotencyStore) Begin(_ context.Context, key string, ttl time.Duration) (IdempotencyState, *StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && s.now().Before(e.expiresAt) {
		if e.resp == nil {
			return KeyInFlight, nil, nil
		}
		resp := *e.resp
		return KeyCompleted, &resp, nil
	}
	s.entries[key] = idempotencyEntry{expiresAt: s.now().Add(ttl)}
	return KeyNew, nil, nil
}

// Complete implements IdempotencyStore
func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{resp: &resp, expiresAt: s.now().Add(ttl)}
	return nil
}

// Release implements IdempotencyStore
func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of live entries
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryIdempotencyStore) sweep(every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryIdempotencyStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Close stops the sweeper
func (s *MemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

var _ IdempotencyStore = (*MemoryIdempotencyStore)(nil)
