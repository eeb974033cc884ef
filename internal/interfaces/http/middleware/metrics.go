package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
)

// HTTPMetrics records request counts, latency and in-flight requests.
// Routes are labelled by pattern.
func HTTPMetrics(metrics *telemetry.Metrics) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		done := metrics.TrackInFlight()
		start := time.Now()

		c.Next()

		done()
		metrics.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
