package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/infrastructure/cache"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idempotentRouter(t *testing.T, status *int) (*gin.Engine, *atomic.Int32) {
	t.Helper()
	store := cache.NewMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })

	var calls atomic.Int32
	router := gin.New()
	router.Use(Idempotency(IdempotencyConfig{Store: store, TTL: time.Hour}))
	router.POST("/invoices", func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(*status, gin.H{"number": n})
	})
	return router, &calls
}

func postWithKey(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	status := http.StatusCreated
	router, calls := idempotentRouter(t, &status)

	first := postWithKey(router, "k1", `{"a":1}`)
	second := postWithKey(router, "k1", `{"a":1}`)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayHeader))
	assert.Empty(t, first.Header().Get(IdempotentReplayHeader))
}

func TestIdempotency_DifferentPayload(t *testing.T) {
	status := http.StatusCreated
	router, calls := idempotentRouter(t, &status)

	postWithKey(router, "k1", `{"a":1}`)
	w := postWithKey(router, "k1", `{"a":2}`)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeIdempotency, decodeResponse(t, w).Error.Code)
}

func TestIdempotency_WithoutKey(t *testing.T) {
	status := http.StatusCreated
	router, calls := idempotentRouter(t, &status)

	postWithKey(router, "", `{}`)
	postWithKey(router, "", `{}`)

	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	status := http.StatusInternalServerError
	router, calls := idempotentRouter(t, &status)

	postWithKey(router, "k1", `{}`)
	status = http.StatusCreated
	w := postWithKey(router, "k1", `{}`)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestIdempotency_InFlight(t *testing.T) {
	store := cache.NewMemoryIdempotencyStore(time.Minute)
	defer store.Close()
	_, _, err := store.Begin(t.Context(), "::/invoices:k1", time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(Idempotency(IdempotencyConfig{Store: store}))
	router.POST("/invoices", func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := postWithKey(router, "k1", `{}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotency_KeyTooLong(t *testing.T) {
	status := http.StatusCreated
	router, calls := idempotentRouter(t, &status)

	w := postWithKey(router, strings.Repeat("k", 256), `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, calls.Load())
}

func TestIdempotency_PanicReleasesKey(t *testing.T) {
	store := cache.NewMemoryIdempotencyStore(time.Minute)
	defer store.Close()

	var calls atomic.Int32
	router := gin.New()
	router.Use(gin.RecoveryWithWriter(io.Discard))
	router.Use(Idempotency(IdempotencyConfig{Store: store}))
	router.POST("/invoices", func(c *gin.Context) {
		if calls.Add(1) == 1 {
			panic("render failed")
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	first := postWithKey(router, "k1", `{}`)
	retry := postWithKey(router, "k1", `{}`)

	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, int32(2), calls.Load())
}

type ttlStore struct {
	cache.IdempotencyStore
	begin, complete time.Duration
}

func (s *ttlStore) Begin(ctx context.Context, key string, ttl time.Duration) (cache.IdempotencyState, *cache.StoredResponse, error) {
	s.begin = ttl
	return s.IdempotencyStore.Begin(ctx, key, ttl)
}

func (s *ttlStore) Complete(ctx context.Context, key string, resp cache.StoredResponse, ttl time.Duration) error {
	s.complete = ttl
	return s.IdempotencyStore.Complete(ctx, key, resp, ttl)
}

func TestIdempotency_ReservationUsesLockTTL(t *testing.T) {
	mem := cache.NewMemoryIdempotencyStore(time.Minute)
	defer mem.Close()
	store := &ttlStore{IdempotencyStore: mem}

	router := gin.New()
	router.Use(Idempotency(IdempotencyConfig{Store: store, TTL: time.Hour, LockTTL: 30 * time.Second}))
	router.POST("/invoices", func(c *gin.Context) { c.Status(http.StatusCreated) })

	postWithKey(router, "k1", `{}`)

	assert.Equal(t, 30*time.Second, store.begin)
	assert.Equal(t, time.Hour, store.complete)
}
