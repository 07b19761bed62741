package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quicknotes/core/internal/pkg/redis"
)

const rateLimitWindow = time.Second

// RateLimit enforces a fixed per-second request budget per client IP using
// redis counters. Counter failures fail open; with a nil client it is a
// no-op.
func RateLimit(cache *redis.Client, perSecond int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || perSecond <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("notes:rate-limit:%s:%d", ip, time.Now().Unix())

		count, err := cache.Raw().Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			cache.Raw().PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > int64(perSecond) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}
