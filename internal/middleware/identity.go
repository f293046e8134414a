package middleware

import "github.com/gin-gonic/gin"

// IdentityMiddleware lifts the caller identity set by the upstream auth
// layer into the context. Authentication itself happens outside this
// service; an absent header just means an anonymous viewer.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
