package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"railzway-console/shared/config"
	"railzway-console/shared/utils/auth"
)

// AdminAuthMiddleware guards admin routes with a bearer token checked
// against the configured bcrypt hash.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := config.GetConfig().AdminAPITokenHash
		if hash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin_token_not_configured"})
			return
		}

		provided := strings.TrimSpace(c.GetHeader("X-Admin-Token"))
		if provided == "" {
			authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				provided = strings.TrimSpace(authHeader[7:])
			}
		}

		if provided == "" || !auth.CheckTokenHash(provided, hash) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
