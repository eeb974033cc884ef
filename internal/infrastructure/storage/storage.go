// Package storage stores uploaded files and generated documents in buckets.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Buckets used by the application
const (
	BucketExpenseAttachments = "expense-attachments"
	BucketAudioFiles         = "audio-files"
	BucketDocuments          = "documents"
)

// Buckets lists every bucket the application writes to
var Buckets = []string{BucketExpenseAttachments, BucketAudioFiles, BucketDocuments}

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrEmptyKey       = errors.New("storage key is required")
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// ObjectStore is the object storage used by the application services
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// PresignGet returns a time-limited download URL
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, time.Time, error)
}

// ObjectKey builds a tenant-prefixed key: <tenant>/<parts...>. File names are
// reduced to their base name and stripped of separators.
func ObjectKey(tenantID uuid.UUID, parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, tenantID.String())
	for _, p := range parts {
		p = path.Base(strings.ReplaceAll(p, "\\", "/"))
		p = strings.TrimSpace(p)
		if p == "" || p == "." || p == ".." || p == "/" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "/")
}

// BelongsTo reports whether key was built by ObjectKey for tenantID
func BelongsTo(key string, tenantID uuid.UUID) bool {
	return strings.HasPrefix(key, tenantID.String()+"/")
}
