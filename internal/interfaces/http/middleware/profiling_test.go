package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestResourceFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/invoices/:id/send": "invoices",
		"/api/v1/expenses":          "expenses",
		"/health":                   "health",
		"/api/v2":                   "",
		"":                          "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceFromRoute(route), route)
	}
}

func TestProfilingLabels(t *testing.T) {
	var labels map[string]string
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(JWTTenantIDKey, "t1"); c.Next() })
	router.GET("/api/v1/quotes/:id", func(c *gin.Context) {
		labels = profilingLabels(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/quotes/9", nil))

	assert.Equal(t, map[string]string{
		telemetry.ProfilingLabelMethod:   "GET",
		telemetry.ProfilingLabelRoute:    "/api/v1/quotes/:id",
		telemetry.ProfilingLabelResource: "quotes",
		telemetry.ProfilingLabelTenantID: "t1",
	}, labels)
}

func TestProfiling_RunsHandler(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		router := gin.New()
		router.Use(Profiling(ProfilingConfig{Enabled: enabled, SkipPaths: []string{"/health"}}))
		router.GET("/x", func(c *gin.Context) { c.Status(http.StatusAccepted) })
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusAccepted, serve(router, http.MethodGet, "/x").Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	}
}
