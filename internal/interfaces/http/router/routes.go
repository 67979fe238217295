package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/infrastructure/auth"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/interfaces/http/handler"
	"github.com/erp/storesync/internal/interfaces/http/middleware"
)

// EngineConfig controls the middleware stack around the API
type EngineConfig struct {
	HTTP config.HTTPConfig
	// RateLimiter is optional; nil disables rate limiting
	RateLimiter *middleware.RateLimiter
	Tracing     middleware.TracingConfig
	Metrics     middleware.HTTPMetricsConfig
	Profiling   middleware.ProfilingConfig
	JWT         middleware.JWTMiddlewareConfig
	// Swagger gates /swagger; disabled answers 404
	Swagger config.SwaggerConfig
	Logger  *zap.Logger
}

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	System      *handler.SystemHandler
	Sync        *handler.SyncHandler
	Webhook     *handler.WebhookHandler
	Integration *handler.IntegrationHandler
}

// NewEngine builds the gin engine with the full middleware stack and every
// route. Middleware order:
//
//  1. RequestID
//  2. Recovery
//  3. Request logging
//  4. Tracing, span error marking and HTTP metrics
//  5. Profiling labels
//  6. Security headers and CORS
//  7. Body limit
//  8. JWT (skips probes and webhooks), then rate limiting keyed by operator
//
// API docs under /swagger sit outside the versioned group behind
// SwaggerProtection.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, "/health", "/health/ready"))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	engine.Use(middleware.Profiling(cfg.Profiling))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	// Probes stay outside the versioned API
	engine.GET("/health", h.System.Health)
	engine.GET("/health/ready", h.System.Ready)

	jwtCfg := cfg.JWT
	if jwtCfg.Logger == nil {
		jwtCfg.Logger = log
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger, middleware.JWTAuthMiddlewareWithConfig(jwtCfg)),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg), middleware.TracingAttributeInjector())
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	r.Register(webhookRoutes(h.Webhook)).
		Register(integrationRoutes(h.Sync, h.Integration)).
		Register(systemRoutes(h.System))
	r.Setup()

	return engine
}

// webhookRoutes are public. The JWT middleware skips the prefix and the
// handler checks the payload signature.
func webhookRoutes(h *handler.WebhookHandler) *DomainGroup {
	g := NewDomainGroup("webhooks", "/webhooks")
	g.POST("/storefront", h.HandleStorefrontWebhook)
	return g
}

func integrationRoutes(sync *handler.SyncHandler, integ *handler.IntegrationHandler) *DomainGroup {
	g := NewDomainGroup("integration", "/integration")

	read := g.Group("read", "").Use(middleware.RequireScope(auth.ScopeSyncRead))
	read.GET("/sync/:local_id", sync.GetSyncStatus)
	read.GET("/logs", integ.ListLogs)
	read.GET("/report", integ.GetReport)
	read.GET("/settings", integ.GetSettings)

	write := g.Group("write", "").Use(middleware.RequireScope(auth.ScopeSyncWrite))
	write.POST("/sync/bulk", sync.BulkSync)
	write.POST("/sync/:local_id", sync.SyncEntity)
	write.POST("/sync/:local_id/reset", sync.ResetSyncStatus)
	write.POST("/test-connection", sync.TestConnection)

	settings := g.Group("settings", "").Use(middleware.RequireScope(auth.ScopeSettingsWrite))
	settings.PUT("/settings", integ.UpdateSettings)

	return g
}

func systemRoutes(h *handler.SystemHandler) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.GetSystemInfo)
	return g
}
