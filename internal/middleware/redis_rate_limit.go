package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/cache"
	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RedisRateLimitMiddleware rate-limits by client IP using Redis, so the
// limit holds across instances. Without Redis configured the request passes
// through; the ingestion path is best-effort and should not hard-fail on a
// missing limiter.
func RedisRateLimitMiddleware(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisClient := cache.GetRedisClient()
		if redisClient == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		val, err := redisClient.GetInt(ctx, key)
		if err != nil && err.Error() != "redis: nil" {
			logger.Log.Warn("Rate limit check failed, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err))
			c.Next()
			return
		}

		if val >= int64(maxRequests) {
			logger.Log.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("max_requests", maxRequests))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		newVal, err := redisClient.IncrBy(ctx, key, 1)
		if err != nil {
			logger.Log.Warn("Rate limit increment failed, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err))
			c.Next()
			return
		}

		if newVal == 1 {
			if err := redisClient.Expire(ctx, key, window); err != nil {
				logger.Log.Warn("Failed to set rate limit expiration",
					zap.String("client_ip", clientIP),
					zap.Error(err))
			}
		}

		c.Next()
	}
}
