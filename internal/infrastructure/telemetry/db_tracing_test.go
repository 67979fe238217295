package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:64"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.IncludeVariables)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, "storesync", cfg.DBName)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, RegisterDBTracing(db, DefaultDBTracingConfig(), zap.NewNop()))
	assert.Nil(t, db.Callback().Create().Get("storesync:start_create"))
}

func TestRegisterDBTracing_Enabled(t *testing.T) {
	db := setupTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	require.NoError(t, RegisterDBTracing(db, cfg, zap.NewNop()))
	assert.NotNil(t, db.Callback().Create().Get("storesync:start_create"))
	assert.NotNil(t, db.Callback().Query().Get("storesync:tag_query"))

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Code: "SKU-001"}).Error)
	var got tracedRow
	require.NoError(t, db.WithContext(context.Background()).First(&got, "code = ?", "SKU-001").Error)
	assert.Equal(t, "SKU-001", got.Code)
}

func TestSlowQueryTagger(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	db := setupTestDB(t)
	tagger := &slowQueryTagger{threshold: 10 * time.Millisecond}

	run := func(name string, elapsed time.Duration, dbErr error) sdktrace.ReadOnlySpan {
		ctx, span := tp.Tracer("test").Start(context.Background(), name)
		tx := db.Session(&gorm.Session{NewDB: true, Context: ctx})
		tx.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-elapsed))
		tx.Statement.Table = "entity_mappings"
		tx.Statement.RowsAffected = 3
		tx.Error = dbErr
		tagger.tag(tx)
		span.End()
		ended := sr.Ended()
		return ended[len(ended)-1]
	}

	t.Run("slow query is flagged", func(t *testing.T) {
		s := run("slow", time.Second, nil)
		attrs := spanAttrs(s)
		assert.True(t, attrs["db.slow_query"].AsBool())
		assert.GreaterOrEqual(t, attrs["db.query_duration_ms"].AsInt64(), int64(1000))
		assert.Equal(t, "entity_mappings", attrs["db.sql.table"].AsString())
		assert.Equal(t, int64(3), attrs["db.rows_affected"].AsInt64())
	})

	t.Run("fast query is not flagged", func(t *testing.T) {
		s := run("fast", 0, nil)
		_, flagged := spanAttrs(s)["db.slow_query"]
		assert.False(t, flagged)
		assert.Equal(t, codes.Unset, s.Status().Code)
	})

	t.Run("errors mark the span except not found", func(t *testing.T) {
		s := run("failed", 0, errors.New("constraint violation"))
		assert.Equal(t, codes.Error, s.Status().Code)

		s = run("missing", 0, gorm.ErrRecordNotFound)
		assert.Equal(t, codes.Unset, s.Status().Code)
	})
}
