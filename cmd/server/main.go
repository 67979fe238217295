package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/erp/storesync/docs"
	"github.com/erp/storesync/internal/bootstrap"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/scheduler"
	"github.com/erp/storesync/internal/interfaces/http/handler"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
	"github.com/erp/storesync/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Storesync API
//	@version		1.0
//	@description	Bidirectional sync between the ERP catalog and the storefront

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Fields: map[string]string{"service": cfg.App.Name, "version": version},
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{
		Version:   version,
		Migrate:   true,
		Queue:     true,
		Telemetry: true,
	})
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	log = app.Logger
	zap.ReplaceGlobals(log)

	log.Info("Starting storesync",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("queue", app.Queue.Driver()),
		zap.String("cache", app.Stores.Backend()),
	)

	if err := app.Queue.Start(ctx); err != nil {
		log.Fatal("Failed to start task queue", zap.Error(err))
	}

	var trigger *scheduler.SyncTrigger
	if cfg.Scheduler.Enabled {
		trigger = scheduler.NewSyncTrigger(scheduler.DefaultJobs(cfg.Scheduler), app.Queue, 0, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	jwtCfg := middleware.DefaultJWTConfig(app.JWT)
	jwtCfg.TokenBlacklist = app.Blacklist

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = app.Telemetry.Profiler.IsEnabled()

	engine := router.NewEngine(router.EngineConfig{
		HTTP:        cfg.HTTP,
		RateLimiter: limiter,
		Tracing:     tracingCfg,
		Metrics:     middleware.HTTPMetricsConfig{MeterProvider: app.Telemetry.Meter, Enabled: app.Telemetry.Meter.IsEnabled()},
		Profiling:   profilingCfg,
		JWT:         jwtCfg,
		Swagger:     cfg.Swagger,
		Logger:      log,
	}, router.Handlers{
		System: handler.NewSystemHandler(version, map[string]handler.ReadinessCheck{
			"database": app.DB.Ping,
			"cache":    app.Stores.Ping,
		}),
		Sync:        handler.NewSyncHandler(app.Sync, app.Queue),
		Webhook:     handler.NewWebhookHandler(app.Webhooks),
		Integration: handler.NewIntegrationHandler(app.Audit, app.Maintenance, app.Settings),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	failed := false
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
		failed = true
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop intake first, then drain queued work, then release storage
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler stop failed", zap.Error(err))
		}
	}
	if err := app.Queue.Stop(shutdownCtx); err != nil {
		log.Warn("Task queue stop failed", zap.Error(err))
	}
	if err := app.Close(shutdownCtx); err != nil {
		log.Warn("Shutdown finished with errors", zap.Error(err))
	}

	if failed {
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Server exited gracefully")
}
