// Package app assembles the HTTP server from configuration: store, cover
// storage, activity queue, rate limiting, middleware and routes.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/library-catalog/internal/config"
	"github.com/iliyamo/library-catalog/internal/database"
	"github.com/iliyamo/library-catalog/internal/handler"
	"github.com/iliyamo/library-catalog/internal/middleware"
	"github.com/iliyamo/library-catalog/internal/queue"
	"github.com/iliyamo/library-catalog/internal/ratelimit"
	"github.com/iliyamo/library-catalog/internal/repository"
	"github.com/iliyamo/library-catalog/internal/router"
	"github.com/iliyamo/library-catalog/internal/service"
	"github.com/iliyamo/library-catalog/internal/storage"
	"github.com/iliyamo/library-catalog/internal/utils"
	"github.com/iliyamo/library-catalog/internal/validation"
)

// Deps are the collaborators New cannot build from config alone. Nil
// fields get defaults: Redis off, no event publishing, local covers.
type Deps struct {
	DB        *sql.DB
	Redis     *redis.Client
	Covers    storage.CoverStore
	Publisher service.Publisher
	RateLimit config.RateLimitConfig
}

// App is a fully wired server.
type App struct {
	Echo    *echo.Echo
	Cfg     config.Config
	Log     *slog.Logger
	DB      *sql.DB
	redis   *redis.Client
	limiter *ratelimit.KeyedRateLimiter
}

// New wires handlers and middleware over deps.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*App, error) {
	if deps.DB == nil {
		return nil, errors.New("app: database is required")
	}
	codec, err := utils.NewSessionCodec(cfg.SessionFormat, cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	if deps.Covers == nil {
		local, err := storage.NewLocal(cfg.Storage.UploadsDir)
		if err != nil {
			return nil, err
		}
		deps.Covers = local
	}
	if deps.Publisher == nil {
		deps.Publisher = service.NopPublisher{}
	}

	db := deps.DB
	users := repository.NewUserRepo(db)
	books := repository.NewBookRepo(db)
	favorites := repository.NewFavoriteRepo(db)
	bookmarks := repository.NewBookmarkRepo(db)
	categories := repository.NewCategoryRepo(db)
	validate := validation.New()

	auth := service.NewAuthService(users, deps.Publisher, log)
	cat := service.NewCatalogService(books, favorites, bookmarks, log)
	admin := &service.AdminService{
		Users:      users,
		Books:      books,
		Favorites:  favorites,
		Bookmarks:  bookmarks,
		Categories: categories,
		Covers:     deps.Covers,
		Events:     deps.Publisher,
		Log:        log,
	}

	var limiter *ratelimit.KeyedRateLimiter
	if deps.RateLimit.Enabled {
		limiter = ratelimit.New(deps.RateLimit.PerSecond(), deps.RateLimit.Capacity, deps.RateLimit.TTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.Echo()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("20M"))
	e.Use(middleware.Session(codec, cfg.Production(), log))
	e.Use(middleware.RouteGuard())

	router.Register(e, router.Handlers{
		Health: &handler.Health{DB: db},
		Auth:   handler.NewAuthHandler(auth, codec, cfg.Production(), log),
		Books:  handler.NewBookHandler(cat, log),
		Admin:  handler.NewAdminHandler(admin, validate, log),
		Covers: &handler.CoverHandler{Covers: deps.Covers, Log: log},
	}, middleware.NewTokenBucket(deps.RateLimit, deps.Redis, limiter, log))

	return &App{Echo: e, Cfg: cfg, Log: log, DB: db, redis: deps.Redis, limiter: limiter}, nil
}

// Open builds every dependency from cfg: it opens and migrates the store,
// connects Redis, selects the cover backend and the event publisher.
func Open(cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, err
	}

	deps := Deps{DB: db, RateLimit: config.LoadRateLimitConfig()}

	if deps.RateLimit.Enabled {
		if deps.Redis = config.NewRedisClient(); deps.Redis == nil {
			log.Warn("redis unavailable, rate limiting in-process")
		}
	}

	if cfg.Storage.Backend == "minio" {
		m, err := storage.NewMinio(cfg.Storage, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		deps.Covers = m
	}

	if cfg.Queue.Enabled {
		deps.Publisher = service.NewAMQPPublisher(cfg.Queue.URL, log)
	}

	a, err := New(cfg, log, deps)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. The
// activity consumer runs alongside when the queue is enabled.
func (a *App) Run(ctx context.Context) error {
	if a.Cfg.Queue.Enabled {
		consumer := queue.NewConsumer(a.Cfg.Queue.URL, a.Cfg.Queue.LogDir, a.Log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Log.Error("activity consumer stopped", "error", err)
			}
		}()
	}

	addr := ":" + a.Cfg.Port
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("listening", "addr", addr, "env", a.Cfg.Env, "db", a.Cfg.DBDriver)
		if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

// Close releases the database and the in-process limiter.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.DB.Close()
}
