package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
)

// RequirePermission requires the caller to hold permission
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission requires the caller to hold at least one of permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasAnyPermission(permissions...) {
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "You do not have permission to perform this action")
			return
		}
		c.Next()
	}
}

// RequireAllPermissions requires the caller to hold every permission
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		for _, p := range permissions {
			if !claims.HasPermission(p) {
				abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "You do not have permission to perform this action")
				return
			}
		}
		c.Next()
	}
}

// RequireResource checks "<resource>:read" for safe methods and "<resource>:write" otherwise
func RequireResource(resource string) gin.HandlerFunc {
	read := RequirePermission(resource + ":read")
	write := RequirePermission(resource + ":write")
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
			read(c)
		default:
			write(c)
		}
	}
}
