package middleware

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quicknotes/core/internal/pkg/redis"
)

// CachePrefix namespaces cached GET responses in redis.
const CachePrefix = "notes:http-cache:"

const (
	defaultCacheTTL     = 60 * time.Second
	defaultCacheMaxBody = 1 << 20 // 1 MiB
)

type CacheOptions struct {
	TTL          time.Duration
	MaxBodyBytes int
	SkipPaths    []string
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	BodyBase64  string `json:"body_base64"`
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	remaining := w.maxBodyBytes - len(w.body)
	if remaining <= 0 {
		w.overflow = true
		return
	}
	if len(data) > remaining {
		w.body = append(w.body, data[:remaining]...)
		w.overflow = true
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache serves GET responses from redis and, so reads never observe
// stale rows, purges the whole cache namespace after any successful write.
// With a nil client it is a no-op.
func HTTPCache(cache *redis.Client, opts CacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultCacheMaxBody
	}

	return func(c *gin.Context) {
		if cache == nil {
			c.Next()
			return
		}

		if c.Request.Method != http.MethodGet {
			c.Next()
			status := c.Writer.Status()
			if status >= 200 && status < 300 {
				_, _ = cache.PurgePrefix(c.Request.Context(), CachePrefix)
			}
			return
		}

		if skipCachePath(c.Request.URL.Path, opts.SkipPaths) {
			c.Next()
			return
		}

		key := CachePrefix + c.Request.URL.RequestURI()
		if status, contentType, body, ok := readCachedResponse(c, cache, key); ok {
			c.Header("X-Cache", "hit")
			c.Data(status, contentType, body)
			c.Abort()
			return
		}

		buffer := &cacheBodyWriter{
			ResponseWriter: c.Writer,
			maxBodyBytes:   opts.MaxBodyBytes,
		}
		c.Writer = buffer
		c.Next()

		if c.Writer.Status() != http.StatusOK || buffer.overflow || len(buffer.body) == 0 {
			return
		}

		payload := cachedResponse{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			BodyBase64:  base64.StdEncoding.EncodeToString(buffer.body),
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = cache.Set(c.Request.Context(), key, raw, opts.TTL)
	}
}

func readCachedResponse(c *gin.Context, cache *redis.Client, key string) (int, string, []byte, bool) {
	raw, err := cache.Get(c.Request.Context(), key)
	if err != nil || raw == "" {
		return 0, "", nil, false
	}
	var payload cachedResponse
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return 0, "", nil, false
	}
	body, err := base64.StdEncoding.DecodeString(payload.BodyBase64)
	if err != nil || len(body) == 0 {
		return 0, "", nil, false
	}
	if payload.Status <= 0 {
		payload.Status = http.StatusOK
	}
	if payload.ContentType == "" {
		payload.ContentType = "application/json; charset=utf-8"
	}
	return payload.Status, payload.ContentType, body, true
}

func skipCachePath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		p := strings.TrimSpace(pattern)
		if p == "" {
			continue
		}
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}
