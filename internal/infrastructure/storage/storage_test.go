package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	tenantID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"plain", []string{"expenses", "receipt.pdf"}, "11111111-1111-1111-1111-111111111111/expenses/receipt.pdf"},
		{"strips directories", []string{"../../etc/passwd"}, "11111111-1111-1111-1111-111111111111/passwd"},
		{"windows separators", []string{`C:\Users\me\audio.mp3`}, "11111111-1111-1111-1111-111111111111/audio.mp3"},
		{"skips empty", []string{"", "  ", "a.txt"}, "11111111-1111-1111-1111-111111111111/a.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ObjectKey(tenantID, tt.parts...)
			assert.Equal(t, tt.want, key)
			assert.True(t, BelongsTo(key, tenantID))
			assert.False(t, BelongsTo(key, uuid.New()))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("")

	require.NoError(t, store.Put(ctx, BucketAudioFiles, "t/a.mp3", strings.NewReader("audio"), 5, "audio/mpeg"))
	assert.Equal(t, 1, store.Len())

	ok, err := store.Exists(ctx, BucketAudioFiles, "t/a.mp3")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, BucketDocuments, "t/a.mp3")
	require.NoError(t, err)
	assert.False(t, ok, "buckets are separate namespaces")

	body, info, err := store.Get(ctx, BucketAudioFiles, "t/a.mp3")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	url, expires, err := store.PresignGet(ctx, BucketAudioFiles, "t/a.mp3", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://storage/audio-files/"))
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 5*time.Second)

	require.NoError(t, store.Delete(ctx, BucketAudioFiles, "t/a.mp3"))
	_, _, err = store.Get(ctx, BucketAudioFiles, "t/a.mp3")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	require.NoError(t, store.Delete(ctx, BucketAudioFiles, "t/a.mp3"))

	assert.ErrorIs(t, store.Put(ctx, BucketAudioFiles, "", strings.NewReader(""), 0, ""), ErrEmptyKey)
}

// fakeS3 answers the path-style requests the store issues
type fakeS3 struct {
	mu       sync.Mutex
	requests []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
	_, _ = io.Copy(io.Discard, r.Body)

	switch {
	case r.Method == http.MethodHead && strings.HasSuffix(r.URL.Path, "/missing.pdf"):
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", "7")
		_, _ = w.Write([]byte("%PDF-1."))
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeS3) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newTestS3Store(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Driver:            "s3",
		Endpoint:          endpoint,
		Region:            "eu-west-1",
		AccessKeyID:       "test",
		SecretAccessKey:   "secret",
		UsePathStyle:      true,
		BucketPrefix:      "rf-",
		PresignExpiration: 10 * time.Minute,
	}, nil)
	require.NoError(t, err)
	return store
}

func TestS3Store_Objects(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	store := newTestS3Store(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, BucketDocuments, "t/q.pdf", strings.NewReader("%PDF-1."), 7, "application/pdf"))

	body, info, err := store.Get(ctx, BucketDocuments, "t/q.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	_ = body.Close()
	assert.Equal(t, "%PDF-1.", string(data))
	assert.Equal(t, "application/pdf", info.ContentType)

	ok, err := store.Exists(ctx, BucketDocuments, "t/q.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, BucketDocuments, "t/missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, BucketDocuments, "t/q.pdf"))

	seen := fake.seen()
	assert.Contains(t, seen, "PUT /rf-documents/t/q.pdf")
	assert.Contains(t, seen, "GET /rf-documents/t/q.pdf")
	assert.Contains(t, seen, "DELETE /rf-documents/t/q.pdf")
}

func TestS3Store_PresignGet(t *testing.T) {
	store := newTestS3Store(t, "http://localhost:9000")

	url, expires, err := store.PresignGet(context.Background(), BucketExpenseAttachments, "t/receipt.jpg", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:9000/rf-expense-attachments/t/receipt.jpg")
	assert.Contains(t, url, "X-Amz-Expires=600")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expires, 5*time.Second)

	_, _, err = store.PresignGet(context.Background(), BucketExpenseAttachments, "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestOpen(t *testing.T) {
	store, err := Open(context.Background(), config.StorageConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(context.Background(), config.StorageConfig{Driver: "ftp"}, nil)
	assert.Error(t, err)
}
