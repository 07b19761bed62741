package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBodyWriterCapture(t *testing.T) {
	w := &cacheBodyWriter{maxBodyBytes: 8}

	w.capture([]byte("12345"))
	assert.Equal(t, "12345", string(w.body))
	assert.False(t, w.overflow)

	w.capture([]byte("67890"))
	assert.Equal(t, "12345678", string(w.body))
	assert.True(t, w.overflow)

	// once overflowed nothing more is recorded
	w.capture([]byte("x"))
	assert.Equal(t, "12345678", string(w.body))
}

func TestSkipCachePath(t *testing.T) {
	patterns := []string{"/api/backup", "/api/notes/generate", "/debug/*"}

	assert.True(t, skipCachePath("/api/backup", patterns))
	assert.True(t, skipCachePath("/debug/pprof/heap", patterns))
	assert.False(t, skipCachePath("/api/notes", patterns))
	assert.False(t, skipCachePath("/api/backups", patterns))
}

func TestRequestIDGenerated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
	assert.Equal(t, rec.Body.String(), rec.Header().Get("X-Request-ID"))
}

func TestRequestIDHonorsInbound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "trace-abc")
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-abc", rec.Header().Get("X-Request-ID"))
}
