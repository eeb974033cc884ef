package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/infrastructure/auth"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func withClaims(claims *auth.Claims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(JWTClaimsKey, claims)
		}
		c.Next()
	}
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRequirePermission(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	tests := []struct {
		name   string
		claims *auth.Claims
		mw     gin.HandlerFunc
		want   int
	}{
		{"granted", testClaims("invoice:write"), RequirePermission("invoice:write"), http.StatusOK},
		{"missing", testClaims("invoice:read"), RequirePermission("invoice:write"), http.StatusForbidden},
		{"wildcard", testClaims("*"), RequirePermission("settings:write"), http.StatusOK},
		{"unauthenticated", nil, RequirePermission("invoice:read"), http.StatusUnauthorized},
		{"any of", testClaims("quote:read"), RequireAnyPermission("invoice:read", "quote:read"), http.StatusOK},
		{"all of", testClaims("quote:read"), RequireAllPermissions("invoice:read", "quote:read"), http.StatusForbidden},
		{"all of granted", testClaims("quote:read", "invoice:read"), RequireAllPermissions("invoice:read", "quote:read"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/x", withClaims(tt.claims), tt.mw, ok)

			w := serve(router, http.MethodGet, "/x")

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				resp := decodeResponse(t, w)
				assert.Equal(t, dto.ErrCodeForbidden, resp.Error.Code)
				assert.Equal(t, "permission_denied", string(resp.Error.Kind))
			}
		})
	}
}

func TestRequireResource(t *testing.T) {
	router := gin.New()
	group := router.Group("/quotes", withClaims(testClaims("quote:read")), RequireResource("quote"))
	group.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/quotes").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPost, "/quotes").Code)
}
