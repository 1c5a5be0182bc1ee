// Package entrypoint wires the catalog services together and runs the HTTP
// server until the process is signalled.
package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/covers"
	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/database/authors"
	"github.com/mrlokans/locallibrary/internal/database/books"
	"github.com/mrlokans/locallibrary/internal/database/genres"
	"github.com/mrlokans/locallibrary/internal/database/instances"
	"github.com/mrlokans/locallibrary/internal/database/stats"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/demo"
	http_controllers "github.com/mrlokans/locallibrary/internal/http"
	"github.com/mrlokans/locallibrary/internal/logging"
	"github.com/mrlokans/locallibrary/internal/metadata"
	"github.com/mrlokans/locallibrary/internal/scheduler"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until ctx is cancelled or the listener fails,
// then drains open connections within the configured timeout and calls
// onShutdown. A listener failure is returned; a requested stop is not.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, logger *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		if ctx.Err() != nil {
			logger.Info("shutting down server", zap.String("reason", "requested to stop"), zap.Duration("timeout", timeout))
		} else {
			logger.Info("shutting down server", zap.String("reason", "listener failed"))
		}

		sCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(sCtx); err != nil {
			logger.Warn("graceful shutdown failed, closing connections", zap.Error(err))
			_ = srv.Close()
		}
		// background work stops after the last request has been answered
		if onShutdown != nil {
			onShutdown(sCtx)
		}
		return nil
	})

	err := g.Wait()
	logger.Info("server exiting", zap.Error(err))
	return err
}

// csrfSecret decodes the configured secret, hex first and raw bytes
// otherwise. Without one a random secret is generated per process.
func csrfSecret(cfg config.Auth, logger *zap.Logger) ([]byte, error) {
	if cfg.SessionSecret == "" {
		logger.Warn("generated session secret, set AUTH_SESSION_SECRET to keep CSRF tokens valid across restarts")
		return auth.NewSessionSecret()
	}
	if secret, err := hex.DecodeString(cfg.SessionSecret); err == nil {
		return secret, nil
	}
	return []byte(cfg.SessionSecret), nil
}

// Run builds every service from cfg and serves until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	logger, flush := logging.New(cfg.Log)
	defer flush()
	logger.Info("starting LocalLibrary", zap.String("version", version))

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	clk := clock.New(time.Local)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var demoMiddleware *demo.Middleware
	if cfg.Demo.Enabled {
		logger.Info("demo mode enabled, write operations will be blocked")
		demoMiddleware = demo.NewMiddleware(true)
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger.Named("database"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database", zap.Error(err))
		}
	}()
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	authorRepo := authors.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	genreRepo := genres.NewRepository(db.DB)
	instanceRepo := instances.NewRepository(db.DB)
	userRepo := users.NewRepository(db.DB)

	auditor := audit.NewService(auditrepo.NewRepository(db.DB), logger.Named("audit"))

	authService := auth.NewService(userRepo, cfg.Auth, clk)
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	authMiddleware := auth.NewMiddleware(authService, sessionManager, cfg.Auth)
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfig{
		MaxAttempts:     cfg.Auth.MaxLoginAttempts,
		WindowDuration:  cfg.Auth.RateLimitWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
		CleanupInterval: 5 * time.Minute,
	}, clk)
	defer rateLimiter.Stop()

	secret, err := csrfSecret(cfg.Auth, logger)
	if err != nil {
		return fmt.Errorf("failed to generate CSRF secret: %w", err)
	}

	if cfg.Auth.Mode == config.AuthModeNone {
		logger.Warn("authentication disabled, every request acts as the default administrator")
	} else if hasUsers, err := authService.HasUsers(ctx); err == nil && !hasUsers {
		logger.Info("no users found, visit " + auth.SetupURL + " to create an administrator account")
	}

	var enricher *metadata.Enricher
	if cfg.Metadata.Enabled {
		client := metadata.NewOpenLibraryClient(cfg.Metadata.OpenLibraryURL)
		enricher = metadata.NewEnricher(client, bookRepo, genreRepo)
	}

	var coverSource http_controllers.CoverSource
	if cfg.Metadata.CoversEnabled {
		cache, err := covers.NewCache(cfg.Metadata.CoverCacheDir, cfg.Metadata.CoversURL)
		if err != nil {
			logger.Warn("cover cache unavailable, covers disabled", zap.Error(err))
		} else {
			coverSource = cache
		}
	}

	var taskClient *tasks.Client
	var taskQueue http_controllers.TaskQueue
	var cron *scheduler.Scheduler
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	if cfg.Tasks.Enabled {
		taskLogger := logger.Named("tasks")
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks), taskLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewEnrichBookQueue(enricher, taskLogger),
			tasks.NewEnrichAllBooksQueue(enricher, taskLogger),
			tasks.NewReportOverdueQueue(instanceRepo, auditor, clk, taskLogger),
			tasks.NewCleanupAuditEventsQueue(auditor, clk, taskLogger),
		)
		taskClient.Start(bgCtx)
		taskQueue = taskClient

		if cfg.Scheduler.Enabled {
			cron = scheduler.New(taskClient, logger.Named("scheduler"))
			for _, job := range scheduler.Jobs(cfg.Scheduler, cfg.Audit) {
				if err := cron.Add(job); err != nil {
					return fmt.Errorf("invalid schedule for job %s: %w", job.Name, err)
				}
			}
			cron.Start(bgCtx)
		}
	} else if cfg.Scheduler.Enabled {
		logger.Warn("scheduler needs the task queue, set TASKS_ENABLED to run scheduled jobs")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Authors:        authorRepo,
		Books:          bookRepo,
		Genres:         genreRepo,
		Instances:      instanceRepo,
		Users:          userRepo,
		Stats:          stats.NewReader(sqlDB),
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		SessionManager: sessionManager,
		RateLimiter:    rateLimiter,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Auditor:        auditor,
		AuditLog:       auditor,
		DemoMiddleware: demoMiddleware,
		Tasks:          taskQueue,
		Covers:         coverSource,
		Catalog:        cfg.Catalog,
		Clock:          clk,
		Logger:         logger,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		if cron != nil {
			cron.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
		auditor.Wait()
	}

	return Serve(ctx, router, cfg, logger, onShutdown)
}
