package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mace-backend/utils"
)

// APIKeyHeader carries the admin key on administrative routes.
const APIKeyHeader = "X-API-Key"

// RequireAPIKey checks the request's API key against a bcrypt hash. With no
// hash configured every administrative request is refused.
func RequireAPIKey(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			utils.ErrorResponse(c, "X-API-Key header is required", http.StatusUnauthorized)
			c.Abort()
			return
		}
		if !utils.ValidateSecret(hash, key) {
			utils.ErrorResponse(c, "invalid API key", http.StatusUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
