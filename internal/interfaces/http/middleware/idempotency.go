package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/infrastructure/cache"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// IdempotencyHeader carries the client's key for a retried write
	IdempotencyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the store
	IdempotentReplayHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig configures the idempotency middleware
type IdempotencyConfig struct {
	Store cache.IdempotencyStore
	// TTL is how long a completed response is replayed
	TTL time.Duration
	// LockTTL bounds how long a reservation blocks retries when the request
	// never completes. It must outlast the slowest handler.
	LockTTL time.Duration
	Logger  *zap.Logger
}

// Idempotency replays the stored response of a POST that carried the same
// Idempotency-Key. Requests without the header pass through.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || c.Request.Method != http.MethodPost || cfg.Store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortWithError(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body is too large")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		fingerprint := fingerprintBody(body)

		scoped := GetJWTTenantID(c) + ":" + GetJWTUserID(c) + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()

		state, stored, err := cfg.Store.Begin(ctx, scoped, cfg.LockTTL)
		if err != nil {
			// Without the store the request runs unprotected
			cfg.Logger.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}

		switch state {
		case cache.KeyInFlight:
			abortWithError(c, http.StatusConflict, dto.ErrCodeIdempotency, "A request with this Idempotency-Key is still being processed")
			return
		case cache.KeyCompleted:
			if stored.Fingerprint != fingerprint {
				abortWithError(c, http.StatusUnprocessableEntity, dto.ErrCodeIdempotency, "Idempotency-Key was already used with a different payload")
				return
			}
			c.Header(IdempotentReplayHeader, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		release := func() {
			if err := cfg.Store.Release(ctx, scoped); err != nil {
				cfg.Logger.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
		defer func() {
			// Recovery sits outside this middleware; free the key before it answers
			if r := recover(); r != nil {
				release()
				panic(r)
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
			release()
			return
		}
		resp := cache.StoredResponse{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
			Fingerprint: fingerprint,
		}
		if err := cfg.Store.Complete(ctx, scoped, resp, cfg.TTL); err != nil {
			cfg.Logger.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// bodyRecorder copies everything written to the client
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
