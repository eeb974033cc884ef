package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

// NewMemoryStore creates an empty store. Presigned URLs point at baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://storage"
	}
	return &MemoryStore{objects: make(map[string]memoryObject), baseURL: baseURL}
}

func memoryKey(bucket, key string) string {
	return bucket + "/" + key
}

// Put implements ObjectStore
func (m *MemoryStore) Put(_ context.Context, bucket, key string, body io.Reader, _ int64, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read upload body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memoryKey(bucket, key)] = memoryObject{data: data, contentType: contentType}
	return nil
}

// Get implements ObjectStore
func (m *MemoryStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	if !ok {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), ObjectInfo{Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

// Delete implements ObjectStore. Deleting a missing object is not an error.
func (m *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, memoryKey(bucket, key))
	return nil
}

// Exists implements ObjectStore
func (m *MemoryStore) Exists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[memoryKey(bucket, key)]
	return ok, nil
}

// PresignGet implements ObjectStore
func (m *MemoryStore) PresignGet(_ context.Context, bucket, key string, ttl time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrEmptyKey
	}
	expires := time.Now().Add(ttl)
	return m.baseURL + "/" + bucket + "/" + url.PathEscape(key) + "?expires=" + fmt.Sprint(expires.Unix()), expires, nil
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ ObjectStore = (*MemoryStore)(nil)

// Open returns the store selected by cfg.Driver. S3 buckets are created on
// first start.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(""), nil
	case "s3", "":
		s, err := NewS3Store(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBuckets(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
