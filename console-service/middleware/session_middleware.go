package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"railzway-console/shared/utils/auth"
)

// SessionMiddleware resolves the cookie session and injects the user id
// into the gin context. Requests without a valid session get 401.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.UserIDFromRequest(c.Request)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("UserID", userID)
		c.Next()
	}
}

// ResolveUserID extracts the authenticated user id set by SessionMiddleware
func ResolveUserID(c *gin.Context) (int64, bool) {
	val, exists := c.Get("UserID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	userID, ok := val.(int64)
	if !ok || userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}
