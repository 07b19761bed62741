package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quicknotes/core/internal/config"
	"github.com/quicknotes/core/internal/database"
	"github.com/quicknotes/core/internal/middleware"
	pkgcron "github.com/quicknotes/core/internal/pkg/cron"
	pkgredis "github.com/quicknotes/core/internal/pkg/redis"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	redis  *pkgredis.Client
	sched  *pkgcron.Scheduler
	logger *zap.Logger
	cancel context.CancelFunc
}

// New initializes the application: database, optional redis, routes, and the
// background scheduler.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.HasRedis() {
		rc, err = pkgredis.Connect(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(buildCORS())

	ctx, cancel := context.WithCancel(context.Background())
	sched := pkgcron.New(logger.Named("cron"))

	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  rc,
		sched:  sched,
		logger: logger,
		cancel: cancel,
	}
	if err := app.registerRoutes(); err != nil {
		cancel()
		return nil, err
	}

	sched.Start(ctx)
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes the redis pool. The database
// pool is owned by gorm and closed with the process.
func (a *App) Shutdown() {
	a.cancel()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
