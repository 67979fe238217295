package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observed(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

func fieldMap(e observer.LoggedEntry) map[string]any {
	return e.ContextMap()
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("writes json to file with static fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sync.log")
		l, err := New(&Config{Level: "info", Format: "json", Output: path, Fields: map[string]string{"service": "storesync"}})
		require.NoError(t, err)

		l.Info("hello")
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"hello"`)
		assert.Contains(t, string(data), `"service":"storesync"`)
	})

	t.Run("unwritable path fails", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNewForEnvironment(t *testing.T) {
	l, err := NewForEnvironment("production")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = NewForEnvironment("development")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

// ---------------------------------------------------------------------------
// Context
// ---------------------------------------------------------------------------

func TestFromContext_NoLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestContextLogger(t *testing.T) {
	base, logs := observed(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), base)
	ctx, _ = WithTask(ctx, base, "task-1", "SKU-001")
	ctx = WithOperator(ctx, "admin")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	L(ctx).Info("synced", zap.String("remote_id", "R1"))

	require.Equal(t, 1, logs.Len())
	fields := fieldMap(logs.All()[0])
	assert.Equal(t, "task-1", fields["task_id"])
	assert.Equal(t, "SKU-001", fields["local_id"])
	assert.Equal(t, "admin", fields["operator"])
	assert.Equal(t, traceID.String(), fields["trace_id"])
	assert.Equal(t, "R1", fields["remote_id"])

	assert.Equal(t, traceID.String(), GetTraceID(ctx))
	assert.Equal(t, spanID.String(), GetSpanID(ctx))
	assert.Equal(t, "task-1", GetTaskID(ctx))
}

func TestWithRequestID(t *testing.T) {
	base, logs := observed(zapcore.InfoLevel)
	ctx, l := WithRequestID(context.Background(), base, "req-9")
	l.Info("x")

	assert.Equal(t, "req-9", GetRequestID(ctx))
	assert.Equal(t, "req-9", fieldMap(logs.All()[0])["request_id"])
	assert.Empty(t, GetTraceID(context.Background()))
}

// ---------------------------------------------------------------------------
// Gin
// ---------------------------------------------------------------------------

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base, logs := observed(zapcore.DebugLevel)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("request_id", "req-1"); c.Next() })
	r.Use(GinMiddleware(base, "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) {
		assert.Equal(t, "req-1", GetRequestID(c.Request.Context()))
		GetGinLogger(c).Debug("inside")
		c.Status(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Zero(t, logs.FilterMessage("HTTP Request").Len(), "health path is skipped")

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail?x=1", nil))
	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusBadGateway, fieldMap(entries[0])["status"])
	assert.Equal(t, "x=1", fieldMap(entries[0])["query"])
	assert.Equal(t, 1, logs.FilterMessage("inside").Len())
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	base, logs := observed(zapcore.DebugLevel)

	r := gin.New()
	r.Use(Recovery(base))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestGetGinLogger_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}

// ---------------------------------------------------------------------------
// GORM
// ---------------------------------------------------------------------------

func TestGormLogger_Trace(t *testing.T) {
	base, logs := observed(zapcore.DebugLevel)
	gl := NewGormLogger(base, gormlogger.Info, 50*time.Millisecond)
	ctx, _ := WithTask(context.Background(), base, "task-7", "")

	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), sql, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	gl.Trace(ctx, time.Now(), sql, assert.AnError)
	gl.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, logs.FilterMessage("SQL Query").Len())
	assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())
	errs := logs.FilterMessage("SQL Error").All()
	require.Len(t, errs, 1)
	assert.Equal(t, "task-7", fieldMap(errs[0])["task_id"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), sql, assert.AnError)
	assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
}
