package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/erp/storesync/internal/infrastructure/config"
)

func baseArchiveConfig() config.ArchiveConfig {
	return config.ArchiveConfig{
		Enabled:      true,
		Bucket:       "test-bucket",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func TestNewS3Archive_Validation(t *testing.T) {
	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := baseArchiveConfig()
		cfg.Bucket = ""
		_, err := NewS3Archive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := baseArchiveConfig()
		cfg.AccessKey = ""
		_, err := NewS3Archive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := baseArchiveConfig()
		cfg.SecretKey = ""
		_, err := NewS3Archive(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates archive", func(t *testing.T) {
		cfg := baseArchiveConfig()
		cfg.PresignExpiration = 5 * time.Minute
		a, err := NewS3Archive(cfg)
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", a.Bucket())
		assert.Equal(t, 5*time.Minute, a.presignExpiration)
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		a, err := NewS3Archive(baseArchiveConfig())
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, a.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		useSSL   bool
		want     string
		wantErr  bool
	}{
		{name: "default is local", want: "http://localhost:9000"},
		{name: "adds http", endpoint: "minio:9000", want: "http://minio:9000"},
		{name: "adds https with ssl", endpoint: "s3.example.com", useSSL: true, want: "https://s3.example.com"},
		{name: "keeps scheme", endpoint: "https://s3.example.com", want: "https://s3.example.com"},
		{name: "rejects missing host", endpoint: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3ArchiveOptions(t *testing.T) {
	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		a, err := NewS3Archive(baseArchiveConfig(), WithLogger(logger))
		require.NoError(t, err)
		assert.Same(t, logger, a.logger)
	})

	t.Run("WithPresignExpiration overrides config", func(t *testing.T) {
		a, err := NewS3Archive(baseArchiveConfig(), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, a.presignExpiration)
	})
}

func TestS3Archive_Key(t *testing.T) {
	cfg := baseArchiveConfig()
	cfg.Prefix = "/reports/"
	a, err := NewS3Archive(cfg)
	require.NoError(t, err)
	assert.Equal(t, "reports/2026/10/18/report.json", a.Key("/2026/10/18/report.json"))

	cfg.Prefix = ""
	a, err = NewS3Archive(cfg)
	require.NoError(t, err)
	assert.Equal(t, "report.json", a.Key("report.json"))
}

func TestS3Archive_EmptyKey(t *testing.T) {
	a, err := NewS3Archive(baseArchiveConfig())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.Put(ctx, "", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = a.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = a.DownloadURL(ctx, "", 0)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, a.Delete(ctx, ""), ErrEmptyKey)
}

func TestS3Archive_DownloadURL(t *testing.T) {
	a, err := NewS3Archive(baseArchiveConfig())
	require.NoError(t, err)

	t.Run("presigns against the endpoint and bucket", func(t *testing.T) {
		url, expiresAt, err := a.DownloadURL(context.Background(), "reports/2026/10/18/r.json", time.Hour)
		require.NoError(t, err)
		assert.Contains(t, url, "localhost:9000")
		assert.Contains(t, url, "test-bucket")
		assert.Contains(t, url, "X-Amz-Signature")
		assert.True(t, expiresAt.After(time.Now().Add(59*time.Minute)))
	})

	t.Run("uses default expiration when not provided", func(t *testing.T) {
		_, expiresAt, err := a.DownloadURL(context.Background(), "r.json", 0)
		require.NoError(t, err)
		assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
	})
}

type recordedPut struct {
	path        string
	contentType string
	body        string
}

func TestS3Archive_PutAgainstFakeServer(t *testing.T) {
	var (
		mu   sync.Mutex
		puts []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(body)})
		mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := baseArchiveConfig()
	cfg.Endpoint = srv.URL
	cfg.Prefix = "reports"
	a, err := NewS3Archive(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	key, err := a.Put(context.Background(), "2026/10/18/sync-report.json", []byte(`{"total":3}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "reports/2026/10/18/sync-report.json", key)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, puts, 1)
	assert.Equal(t, "/test-bucket/reports/2026/10/18/sync-report.json", puts[0].path)
	assert.Equal(t, "application/json", puts[0].contentType)
	assert.True(t, strings.Contains(puts[0].body, `{"total":3}`))
}

// ============================================================================
// Integration Tests (require RustFS/MinIO running)
// ============================================================================

// newIntegrationArchive connects to the server named by
// SYNC_TEST_ARCHIVE_ENDPOINT, e.g. a local MinIO on localhost:9000
func newIntegrationArchive(t *testing.T) *S3Archive {
	t.Helper()
	endpoint := os.Getenv("SYNC_TEST_ARCHIVE_ENDPOINT")
	if endpoint == "" {
		t.Skip("Skipping integration test. Set SYNC_TEST_ARCHIVE_ENDPOINT to an S3-compatible server to enable.")
	}

	a, err := NewS3Archive(config.ArchiveConfig{
		Enabled:      true,
		Endpoint:     endpoint,
		Bucket:       "storesync-test",
		Prefix:       "it",
		AccessKey:    envOr("SYNC_TEST_ARCHIVE_ACCESS_KEY", "minioadmin"),
		SecretKey:    envOr("SYNC_TEST_ARCHIVE_SECRET_KEY", "minioadmin"),
		UsePathStyle: true,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, a.EnsureBucket(context.Background()))
	// Second call hits the existing bucket
	require.NoError(t, a.EnsureBucket(context.Background()))
	return a
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestIntegration_PutExistsDelete(t *testing.T) {
	a := newIntegrationArchive(t)
	ctx := context.Background()

	key, err := a.Put(ctx, "roundtrip.json", []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)

	exists, err := a.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	url, _, err := a.DownloadURL(ctx, key, time.Minute)
	require.NoError(t, err)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Delete(ctx, key))
	exists, err = a.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
