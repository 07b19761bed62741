package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quicknotes/core/internal/middleware"
	"github.com/quicknotes/core/internal/modules/ai"
	"github.com/quicknotes/core/internal/modules/backup"
	"github.com/quicknotes/core/internal/modules/health"
	"github.com/quicknotes/core/internal/modules/note"
	"github.com/quicknotes/core/internal/modules/render"
	"github.com/quicknotes/core/internal/modules/user"
	"github.com/quicknotes/core/internal/pkg/response"
)

func (a *App) registerRoutes() error {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Liveness probe lives outside the /api prefix.
	health.RegisterRoutes(r.Group(""), a.db)

	api := r.Group("/api")
	if a.redis != nil {
		api.Use(middleware.RateLimit(a.redis, a.cfg.Redis.RateLimitPerSec))
		api.Use(middleware.Idempotence(a.redis))
		api.Use(middleware.HTTPCache(a.redis, middleware.CacheOptions{
			TTL: time.Duration(a.cfg.Redis.CacheTTLSeconds) * time.Second,
		}))
	}

	noteSvc := note.NewService(a.db)
	note.NewHandler(noteSvc, a.logger.Named("note")).RegisterRoutes(api)
	user.NewHandler(user.NewService(a.db), a.logger.Named("user")).RegisterRoutes(api)

	aiSvc, err := ai.NewService(a.cfg.AI, a.logger.Named("ai"))
	if err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	ai.NewHandler(aiSvc, noteSvc, a.logger.Named("ai")).RegisterRoutes(api)

	render.NewHandler(noteSvc, a.logger.Named("render")).RegisterRoutes(api)

	backupSvc := backup.NewService(a.db, a.cfg.Backup, a.logger.Named("backup"))
	backup.NewHandler(backupSvc, a.logger.Named("backup")).RegisterRoutes(api)
	registerCronJobs(a.sched, backupSvc)

	return nil
}
