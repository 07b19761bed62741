package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/quicknotes/core/internal/pkg/redis"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
)

// Idempotence deduplicates writes that carry an x-idempotence key. Requests
// without the header pass through untouched, so plain repeated creates keep
// returning 201. A key maps to "0" while the first request is in flight and
// "1" once it succeeded; failed requests release the key immediately.
func Idempotence(cache *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(idempotenceHeader))
		if key == "" {
			c.Next()
			return
		}

		redisKey := fmt.Sprintf("notes:idempotence:%s", key)
		ctx := c.Request.Context()

		val, err := cache.Get(ctx, redisKey)
		if err != nil {
			c.Next()
			return
		}
		if val != "" {
			msg := "Duplicate request"
			if val == "0" {
				msg = "Request is already being processed"
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": msg})
			return
		}

		if err := cache.Set(ctx, redisKey, "0", idempotenceTTL); err != nil {
			c.Next()
			return
		}

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			_ = cache.Raw().Set(ctx, redisKey, "1", goredis.KeepTTL).Err()
		} else {
			_ = cache.Del(ctx, redisKey)
		}
	}
}
