package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type cachedPage struct {
	IDs   []string `json:"ids"`
	Total int64    `json:"total"`
}

func TestQueryKey(t *testing.T) {
	a := QueryKey("quotes", 1, 20, map[string]any{"status": "sent"})
	b := QueryKey("quotes", 1, 20, map[string]any{"status": "sent"})
	c := QueryKey("quotes", 2, 20, map[string]any{"status": "sent"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestMemoryListCache(t *testing.T) {
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()
	c := NewMemoryListCache(time.Minute)
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var got cachedPage
	gen, found, err := c.Get(ctx, tenantA, "quotes", "k1", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, gen)

	want := cachedPage{IDs: []string{"a", "b"}, Total: 2}
	require.NoError(t, c.Set(ctx, tenantA, "quotes", gen, "k1", want))
	require.NoError(t, c.Set(ctx, tenantA, "invoices", gen, "k1", want))

	_, found, err = c.Get(ctx, tenantA, "quotes", "k1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	t.Run("tenants do not share entries", func(t *testing.T) {
		_, found, err := c.Get(ctx, tenantB, "quotes", "k1", &cachedPage{})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("invalidate drops only the named resources", func(t *testing.T) {
		require.NoError(t, c.Invalidate(ctx, tenantA, "quotes"))
		gen, found, err := c.Get(ctx, tenantA, "quotes", "k1", &cachedPage{})
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, int64(1), gen)

		_, found, err = c.Get(ctx, tenantA, "invoices", "k1", &cachedPage{})
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("entries expire", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, found, err := c.Get(ctx, tenantA, "invoices", "k1", &cachedPage{})
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryListCache_SetForStaleGenerationIsDropped(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	c := NewMemoryListCache(time.Minute)

	gen, _, err := c.Get(ctx, tenantID, "contacts", "k1", &cachedPage{})
	require.NoError(t, err)

	// A write invalidates while the reader is still loading
	require.NoError(t, c.Invalidate(ctx, tenantID, "contacts"))
	require.NoError(t, c.Set(ctx, tenantID, "contacts", gen, "k1", cachedPage{IDs: []string{"old"}}))

	next, found, err := c.Get(ctx, tenantID, "contacts", "k1", &cachedPage{})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, gen+1, next)

	fresh := cachedPage{IDs: []string{"new"}}
	require.NoError(t, c.Set(ctx, tenantID, "contacts", next, "k1", fresh))
	var got cachedPage
	_, found, err = c.Get(ctx, tenantID, "contacts", "k1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, fresh, got)
}

func TestNopListCache(t *testing.T) {
	var c ListCache = NopListCache{}
	require.NoError(t, c.Set(context.Background(), uuid.New(), "quotes", 0, "k", 1))
	_, found, err := c.Get(context.Background(), uuid.New(), "quotes", "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Hour)
	defer s.Close()

	state, resp, err := s.Begin(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, KeyNew, state)
	assert.Nil(t, resp)

	state, _, err = s.Begin(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, KeyInFlight, state)

	stored := StoredResponse{Status: 201, ContentType: "application/json", Body: []byte(`{"success":true}`), Fingerprint: "abc"}
	require.NoError(t, s.Complete(ctx, "key-1", stored, time.Minute))

	state, resp, err = s.Begin(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, KeyCompleted, state)
	require.NotNil(t, resp)
	assert.Equal(t, stored, *resp)

	require.NoError(t, s.Release(ctx, "key-1"))
	state, _, err = s.Begin(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, KeyNew, state)
}

func TestMemoryIdempotencyStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIdempotencyStore(time.Hour)
	defer s.Close()
	now := time.Now()
	s.now = func() time.Time { return now }

	_, _, err := s.Begin(ctx, "short", time.Second)
	require.NoError(t, err)
	_, _, err = s.Begin(ctx, "long", time.Hour)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	s.removeExpired()
	assert.Equal(t, 1, s.Len())

	state, _, err := s.Begin(ctx, "short", time.Second)
	require.NoError(t, err)
	assert.Equal(t, KeyNew, state, "expired keys can be reused")
}

func TestMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	s := NewMemoryIdempotencyStore(time.Millisecond)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestDecodeStored(t *testing.T) {
	state, resp, err := decodeStored([]byte(pendingMarker))
	require.NoError(t, err)
	assert.Equal(t, KeyInFlight, state)
	assert.Nil(t, resp)

	state, resp, err = decodeStored([]byte(`{"status":200,"body":"e30="}`))
	require.NoError(t, err)
	assert.Equal(t, KeyCompleted, state)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, []byte("{}"), resp.Body)

	_, _, err = decodeStored([]byte("{broken"))
	assert.Error(t, err)
}
