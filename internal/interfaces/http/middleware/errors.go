package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
)

// abortWithError stops the chain with the standard error body
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, dto.KindForStatus(status), message, GetRequestID(c)))
}
