// Package bootstrap wires configuration, storage and services into a running
// application shared by the server and the operator CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/infrastructure/auth"
	"github.com/erp/storesync/internal/infrastructure/cache"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
	"github.com/erp/storesync/internal/infrastructure/migration"
	"github.com/erp/storesync/internal/infrastructure/persistence"
	"github.com/erp/storesync/internal/infrastructure/queue"
	"github.com/erp/storesync/internal/infrastructure/storage"
	"github.com/erp/storesync/internal/infrastructure/storefront"
	"github.com/erp/storesync/internal/infrastructure/telemetry"
)

// Options selects the optional parts of the application
type Options struct {
	// Version is reported in telemetry resources and the system endpoint
	Version string
	// Migrate applies pending schema migrations before services start
	Migrate bool
	// Queue creates the task queue. It is not started.
	Queue bool
	// Telemetry starts the OTEL providers and profiler
	Telemetry bool
}

// App holds every long-lived component. Close releases them in reverse
// order of creation.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Telemetry *telemetry.Telemetry
	DB        *persistence.Database
	Stores    *cache.Stores

	Mappings    *persistence.GormEntityMappingRepository
	Settings    *integrationapp.SettingsService
	Audit       *integrationapp.AuditService
	Maintenance *integrationapp.MaintenanceService
	Sync        *integrationapp.SyncService
	Webhooks    *integrationapp.WebhookService
	Tasks       *integrationapp.TaskHandler

	// Archive is nil unless the report archive is enabled
	Archive *storage.S3Archive

	// Queue is nil unless Options.Queue is set
	Queue queue.Queue

	JWT       *auth.JWTService
	Blacklist auth.TokenBlacklist

	metrics    *telemetry.SyncMetrics
	metricsErr error
	closers    []func(context.Context) error
}

// New builds the application. On error every component created so far is
// closed.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (app *App, err error) {
	app = &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	telCfg := telemetry.ConfigFrom(cfg.Telemetry, opts.Version)
	if !opts.Telemetry {
		// Providers stay as no-ops
		telCfg.Enabled = false
		telCfg.ProfilingEnabled = false
	}
	tel, err := telemetry.Setup(ctx, telCfg, log)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	app.Telemetry = tel
	app.onClose(tel.Shutdown)
	app.Logger = tel.Bridge(log)
	log = app.Logger

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.onClose(func(context.Context) error { return db.Close() })

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = opts.Telemetry && cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.DBName = cfg.Database.DBName
	if err := telemetry.RegisterDBTracing(db.DB, dbTracing, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}

	if opts.Migrate {
		if err := migrateUp(db, log); err != nil {
			return nil, err
		}
	}

	stores, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		return nil, err
	}
	app.Stores = stores
	app.onClose(func(context.Context) error { return stores.Close() })

	app.wireServices()
	if cfg.Archive.Enabled {
		if err := app.wireArchive(ctx); err != nil {
			return nil, err
		}
	}
	if err := app.Settings.EnsureSeeded(ctx); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	if opts.Queue {
		var observer queue.Observer
		if m := app.syncMetrics(); m != nil {
			observer = m
		}
		q, err := queue.New(cfg, app.Tasks, log, observer)
		if err != nil {
			return nil, err
		}
		app.Queue = q
		app.Sync.SetPublisher(q)
	}

	app.JWT = auth.NewJWTService(cfg.JWT)
	app.Blacklist = auth.NewInMemoryTokenBlacklist()
	if rc := stores.Client(); rc != nil {
		app.Blacklist = auth.NewRedisTokenBlacklist(rc)
	}

	return app, nil
}

func (a *App) wireServices() {
	cfg, log := a.Config, a.Logger
	db := a.DB.DB

	a.Mappings = persistence.NewGormEntityMappingRepository(db)
	categories := persistence.NewGormCategoryMappingRepository(db)
	catalog := persistence.NewGormCatalogRepository(db)
	orders := persistence.NewGormSalesOrderRepository(db)

	client := storefront.NewClient(storefront.WithLogger(log))
	a.Settings = integrationapp.NewSettingsService(persistence.NewGormSettingsRepository(db),
		a.Stores.Settings, cfg.Storefront.ToSettings(), cfg.Scheduler.SettingsCacheTTL, log)
	mappings := integrationapp.NewMappingService(a.Mappings, integrationapp.WithLocalCatalog(catalog))
	a.Audit = integrationapp.NewAuditService(persistence.NewGormAuditLogRepository(db), log)
	a.Maintenance = integrationapp.NewMaintenanceService(a.Settings, mappings, a.Audit, client, log)

	a.Sync = integrationapp.NewSyncService(integrationapp.SyncDependencies{
		Settings:   a.Settings,
		Mappings:   mappings,
		Audit:      a.Audit,
		Catalog:    catalog,
		WriteBack:  catalog,
		References: catalog,
		Prices:     catalog,
		Groups:     catalog,
		Categories: categories,
		Client:     client,
	}, log)

	a.Webhooks = integrationapp.NewWebhookService(integrationapp.WebhookDependencies{
		Settings:   a.Settings,
		Mappings:   mappings,
		Audit:      a.Audit,
		Orders:     integrationapp.NewOrderService(orders, catalog, mappings, log),
		Categories: categories,
		Groups:     catalog,
		WriteBack:  catalog,
		Dedup:      a.Stores.Dedup,
	}, cfg.Scheduler.WebhookIdempotentTTL, log)

	if m := a.syncMetrics(); m != nil {
		a.Sync.SetSyncMetrics(m)
		a.Webhooks.SetSyncMetrics(m)
	}
	a.Tasks = integrationapp.NewTaskHandler(a.Sync, a.Maintenance, log)
}

func (a *App) wireArchive(ctx context.Context) error {
	archive, err := storage.NewS3Archive(a.Config.Archive, storage.WithLogger(a.Logger.Named("archive")))
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	// The bucket may come up after the service; uploads retry on the next report
	if err := archive.EnsureBucket(ctx); err != nil {
		a.Logger.Warn("Archive bucket not ready", zap.String("bucket", archive.Bucket()), zap.Error(err))
	}
	a.Archive = archive
	a.Maintenance.SetArchive(archive)
	return nil
}

// syncMetrics is built once and cached on first use
func (a *App) syncMetrics() *telemetry.SyncMetrics {
	if a.metrics != nil || a.metricsErr != nil {
		return a.metrics
	}
	a.metrics, a.metricsErr = telemetry.NewSyncMetrics(a.Telemetry.Meter.Meter("storesync"), a.Mappings, a.Logger)
	if a.metricsErr != nil {
		a.Logger.Warn("Sync metrics disabled", zap.Error(a.metricsErr))
	}
	return a.metrics
}

// Close releases every component, most recent first, and joins the errors
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared sql.DB
	return m.Up()
}
