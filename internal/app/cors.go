package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// buildCORS allows every origin. The API carries no cookies or auth, so an
// open policy costs nothing and keeps browser clients simple.
func buildCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:   []string{"Content-Length", "X-Cache", "X-Request-ID"},
		AllowOriginFunc: func(string) bool { return true },
		MaxAge:          12 * time.Hour,
	})
}
