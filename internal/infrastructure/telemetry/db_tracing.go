package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures query spans
type DBTracingConfig struct {
	Enabled bool
	// IncludeVariables puts bound values into db.statement; off in production
	IncludeVariables   bool
	SlowQueryThreshold time.Duration
	DBName             string
}

// DefaultDBTracingConfig returns tracing off with a 200ms slow threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		DBName:             "storesync",
	}
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm plus callbacks that tag each query
// span with its table and row count and flag slow queries. The tag
// callbacks run before otelgorm ends the span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	t := &slowQueryTagger{threshold: cfg.SlowQueryThreshold}
	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register("storesync:start_create", t.start),
		cb.Query().Before("gorm:query").Register("storesync:start_query", t.start),
		cb.Update().Before("gorm:update").Register("storesync:start_update", t.start),
		cb.Delete().Before("gorm:delete").Register("storesync:start_delete", t.start),
		cb.Row().Before("gorm:row").Register("storesync:start_row", t.start),
		cb.Raw().Before("gorm:raw").Register("storesync:start_raw", t.start),
		cb.Create().After("gorm:create").Before("otel:after_create").Register("storesync:tag_create", t.tag),
		cb.Query().After("gorm:query").Before("otel:after_query").Register("storesync:tag_query", t.tag),
		cb.Update().After("gorm:update").Before("otel:after_update").Register("storesync:tag_update", t.tag),
		cb.Delete().After("gorm:delete").Before("otel:after_delete").Register("storesync:tag_delete", t.tag),
		cb.Row().After("gorm:row").Before("otel:after_row").Register("storesync:tag_row", t.tag),
		cb.Raw().After("gorm:raw").Before("otel:after_raw").Register("storesync:tag_raw", t.tag),
	)
	if err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("include_variables", cfg.IncludeVariables),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return nil
}

type slowQueryTagger struct {
	threshold time.Duration
}

func (t *slowQueryTagger) start(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t *slowQueryTagger) tag(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}

	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || t.threshold <= 0 {
		return
	}
	if elapsed := time.Since(started); elapsed > t.threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
