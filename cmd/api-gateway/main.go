package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/league-scheduler-api/api/swagger"
	"github.com/noah-isme/league-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/league-scheduler-api/internal/middleware"
	"github.com/noah-isme/league-scheduler-api/internal/models"
	"github.com/noah-isme/league-scheduler-api/internal/repository"
	"github.com/noah-isme/league-scheduler-api/internal/scheduler"
	"github.com/noah-isme/league-scheduler-api/internal/service"
	"github.com/noah-isme/league-scheduler-api/pkg/cache"
	"github.com/noah-isme/league-scheduler-api/pkg/config"
	"github.com/noah-isme/league-scheduler-api/pkg/cpsat"
	"github.com/noah-isme/league-scheduler-api/pkg/database"
	"github.com/noah-isme/league-scheduler-api/pkg/jobs"
	"github.com/noah-isme/league-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/league-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/league-scheduler-api/pkg/middleware/requestid"
)

// @title League Scheduler API
// @version 1.0.0
// @description Round-robin league schedule generation with home/away balance and rematch spacing.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sqlx.DB
	if cfg.Scheduler.PersistenceEnabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, falling back to in-memory stores", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	cacheSvc := service.NewCacheService(
		cacheRepo,
		metricsSvc,
		cfg.Scheduler.ProposalTTL,
		logr,
		redisClient != nil,
	)

	engine := scheduler.NewCPSATEngine(cpsat.Parameters{MaxTime: cfg.Scheduler.SearchTimeout})
	generator := scheduler.NewGenerator(engine, scheduler.Options{
		SolutionCap:   cfg.Scheduler.SolutionCap,
		SearchTimeout: cfg.Scheduler.SearchTimeout,
	}, logr)

	generatorCfg := service.ScheduleGeneratorConfig{
		ProposalTTL:        cfg.Scheduler.ProposalTTL,
		MaxTeams:           cfg.Scheduler.MaxTeams,
		MaxWeeks:           cfg.Scheduler.MaxWeeks,
		PersistenceEnabled: db != nil,
	}
	var scheduleSvc *service.ScheduleGeneratorService
	if db != nil {
		scheduleSvc = service.NewScheduleGeneratorService(generator, repository.NewLeagueScheduleRepository(db), db, cacheSvc, metricsSvc, nil, logr, generatorCfg)
	} else {
		scheduleSvc = service.NewScheduleGeneratorService(generator, nil, nil, cacheSvc, metricsSvc, nil, logr, generatorCfg)
	}
	exportSvc := service.NewExportService(scheduleSvc, logr, nil, nil)

	var runWorker *service.GenerationRunWorker
	runQueue := jobs.NewQueue("generation-runs", func(ctx context.Context, job jobs.Job) error {
		return runWorker.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Scheduler.RunWorkers,
		MaxRetries: cfg.Scheduler.RunRetries,
		RetryDelay: 2 * time.Second,
		JobTimeout: cfg.Scheduler.SearchTimeout + 30*time.Second,
		OnDrop: func(job jobs.Job, err error) {
			runWorker.Abandon(job, err)
		},
		Logger: logr,
	})
	runSvc := service.NewGenerationRunService(scheduleSvc, runQueue, cacheSvc, cfg.Scheduler.RunRetention, metricsSvc, logr)
	runWorker = service.NewGenerationRunWorker(scheduleSvc, runSvc.Store(), runQueue.MaxRetries(), metricsSvc, logr)
	runQueue.Start(ctx)
	defer runQueue.Stop()

	var guard *internalmiddleware.Guard
	if cfg.JWT.Enabled {
		guard = internalmiddleware.NewGuard(service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration))
	} else {
		guard = internalmiddleware.NewGuard(nil)
		logr.Warn("JWT disabled, saved-schedule routes are unauthenticated")
	}

	dependencies := map[string]handler.Pinger{}
	if db != nil {
		dependencies["postgres"] = db
	}
	if redisClient != nil {
		dependencies["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, cfg.Metrics.Path, "/health", "/ready"))
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, cfg, routeDeps{
		schedules: handler.NewScheduleGeneratorHandler(scheduleSvc, exportSvc),
		runs:      handler.NewGenerationRunHandler(runSvc),
		system:    handler.NewMetricsHandler(metricsSvc, dependencies),
		guard:     guard,
		logger:    logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeDeps struct {
	schedules *handler.ScheduleGeneratorHandler
	runs      *handler.GenerationRunHandler
	system    *handler.MetricsHandler
	guard     *internalmiddleware.Guard
	logger    *zap.Logger
}

func registerRoutes(r *gin.Engine, cfg *config.Config, deps routeDeps) {
	r.GET("/health", deps.system.Health)
	r.GET("/ready", deps.system.Ready)
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, deps.system.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/generate", deps.schedules.GenerateLegacy)

	api := r.Group(cfg.APIPrefix)
	schedules := api.Group("/schedules")
	schedules.POST("/generate", deps.schedules.Generate)
	schedules.POST("/preview", deps.schedules.Preview)
	schedules.POST("/runs", deps.runs.Submit)
	schedules.GET("/runs/:id", deps.runs.Get)

	guard := deps.guard
	saved := schedules.Group("", guard.Authenticate())
	readers := guard.Require(models.RoleCommissioner, models.RoleViewer)
	writers := guard.Require(models.RoleCommissioner)
	saved.GET("", readers, deps.schedules.List)
	saved.GET("/:id", readers, deps.schedules.Get)
	saved.GET("/:id/export", readers, deps.schedules.Export)
	saved.POST("/save", writers, internalmiddleware.Audit(deps.logger, "schedule.save", "league_schedule"), deps.schedules.Save)
	saved.DELETE("/:id", writers, internalmiddleware.Audit(deps.logger, "schedule.delete", "league_schedule"), deps.schedules.Delete)

	api.GET("/system/metrics", guard.Authenticate(), guard.Require(), deps.system.Snapshot)
}
